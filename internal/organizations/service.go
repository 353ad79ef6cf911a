package organizations

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/reporting"
	"github.com/wolfeidau/taskboard/internal/store"
	"github.com/wolfeidau/taskboard/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the optional collaborators of a Service.
type Config struct {
	// Provisioner, when set, writes the organization and owner membership in
	// one transaction instead of the two-step write with compensation.
	Provisioner store.OrganizationProvisioner

	// Reporter receives compensation failures.
	// Default: reporting.Nop
	Reporter reporting.Reporter

	// LenientRoles treats a membership without a role as a member instead
	// of failing the fetch with an integrity error.
	LenientRoles bool

	// CompensationTimeout bounds the compensating delete, which runs even if
	// the request context was cancelled.
	// Default: 5s
	CompensationTimeout time.Duration

	Now   func() time.Time
	NewID func() (uuid.UUID, error)
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.Reporter == nil {
		c.Reporter = reporting.Nop{}
	}
	if c.CompensationTimeout == 0 {
		c.CompensationTimeout = 5 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewV7
	}
}

// Service implements organization fetch, provisioning and access checks.
type Service struct {
	orgs        store.OrganizationStore
	memberships store.MembershipStore
	cfg         Config
	metrics     *telemetry.Metrics
}

// NewService creates a new Service.
func NewService(orgs store.OrganizationStore, memberships store.MembershipStore, cfg Config) *Service {
	cfg.ApplyDefaults()
	return &Service{
		orgs:        orgs,
		memberships: memberships,
		cfg:         cfg,
		metrics:     telemetry.GetMetrics(),
	}
}

// FetchForUser returns every organization profileID is a member of, with the
// profile's role, newest first. A profile without memberships gets an empty
// slice. Organizations referenced by a membership but no longer present are
// skipped.
func (s *Service) FetchForUser(ctx context.Context, profileID uuid.UUID) ([]*models.OrganizationWithRole, error) {
	const op = "fetch organizations"

	if profileID == uuid.Nil {
		return nil, validationError(op, msgProfileRequired)
	}

	start := s.cfg.Now()
	result, err := s.fetchForUser(ctx, op, profileID)
	s.metrics.FetchDuration.Record(ctx, float64(s.cfg.Now().Sub(start).Milliseconds()))
	if err != nil {
		s.metrics.FetchErrorsTotal.Add(ctx, 1, kindAttr(KindOf(err)))
		log.Warn().Err(err).Str("profile_id", profileID.String()).Msg("Failed to fetch organizations")
		return nil, err
	}

	log.Debug().
		Str("profile_id", profileID.String()).
		Int("count", len(result)).
		Msg("Fetched organizations")

	return result, nil
}

func (s *Service) fetchForUser(ctx context.Context, op string, profileID uuid.UUID) ([]*models.OrganizationWithRole, error) {
	memberships, err := s.memberships.ListByUser(ctx, profileID)
	if err != nil {
		return nil, classify(op, err, msgFetchFailed)
	}
	if len(memberships) == 0 {
		return []*models.OrganizationWithRole{}, nil
	}

	roles := make(map[uuid.UUID]models.Role, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		role, err := s.resolveRole(op, m)
		if err != nil {
			return nil, err
		}
		roles[m.OrgID] = role
		ids = append(ids, m.OrgID)
	}

	orgs, err := s.orgs.ListByIDs(ctx, ids)
	if err != nil {
		return nil, classify(op, err, msgFetchFailed)
	}

	result := make([]*models.OrganizationWithRole, 0, len(orgs))
	for _, org := range orgs {
		role, ok := roles[org.OrgID]
		if !ok {
			continue
		}
		result = append(result, &models.OrganizationWithRole{Organization: *org, Role: role})
	}

	if skipped := len(memberships) - len(result); skipped > 0 {
		log.Debug().Str("profile_id", profileID.String()).Int("skipped", skipped).Msg("Skipped memberships without organization")
	}

	slices.SortFunc(result, func(a, b *models.OrganizationWithRole) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	return result, nil
}

func (s *Service) resolveRole(op string, m *models.Membership) (models.Role, error) {
	if m.Role.Valid() {
		return m.Role, nil
	}
	if m.Role == "" && s.cfg.LenientRoles {
		log.Warn().Str("org_id", m.OrgID.String()).Str("profile_id", m.UserID.String()).Msg("Membership without role, defaulting to member")
		return models.RoleMember, nil
	}
	return "", &Error{
		Kind:      KindIntegrity,
		CauseKind: KindIntegrity,
		Op:        op,
		Message:   msgIntegrity,
		Err:       errors.New("membership of " + m.OrgID.String() + " has invalid role " + `"` + string(m.Role) + `"`),
	}
}

// Create provisions an organization named name, owned by profileID, and
// returns its id. On a store without transactions a failed owner membership
// triggers a compensating delete; the returned error is then a partial
// provisioning error describing the membership failure.
func (s *Service) Create(ctx context.Context, name string, profileID uuid.UUID) (uuid.UUID, error) {
	const op = "create organization"

	trimmed, err := NormalizeName(name)
	if err != nil {
		return uuid.Nil, err
	}
	if profileID == uuid.Nil {
		return uuid.Nil, validationError(op, msgProfileRequired)
	}

	orgID, err := s.cfg.NewID()
	if err != nil {
		return uuid.Nil, &Error{Kind: KindInternal, CauseKind: KindInternal, Op: op, Message: msgCreateFailed, Err: err}
	}

	now := s.cfg.Now()
	org := &models.Organization{
		OrgID:     orgID,
		Name:      trimmed,
		OwnerID:   profileID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	membership := &models.Membership{
		OrgID:     orgID,
		UserID:    profileID,
		Role:      models.RoleOwner,
		CreatedAt: now,
	}

	if s.cfg.Provisioner != nil {
		if err := s.cfg.Provisioner.CreateWithOwner(ctx, org, membership); err != nil {
			e := classify(op, err, msgCreateFailed)
			s.recordFailure(ctx, e, orgID, profileID)
			return uuid.Nil, e
		}
	} else {
		tx := s.provision(ctx, org, membership)
		if tx.State != TxMembershipCreated {
			e := s.transactionError(op, tx)
			s.recordFailure(ctx, e, orgID, profileID)
			return uuid.Nil, e
		}
	}

	s.metrics.OrganizationsCreatedTotal.Add(ctx, 1)
	log.Info().
		Str("org_id", orgID.String()).
		Str("profile_id", profileID.String()).
		Str("name", trimmed).
		Msg("Organization created")

	return orgID, nil
}

// provision runs the two-step write and returns the finished transaction.
func (s *Service) provision(ctx context.Context, org *models.Organization, membership *models.Membership) *Transaction {
	tx := NewTransaction(org.OrgID, membership.UserID)

	if err := s.orgs.Create(ctx, org); err != nil {
		_ = tx.fail(err)
		return tx
	}
	_ = tx.organizationCreated()

	if err := s.memberships.Create(ctx, membership); err != nil {
		tx.Err = err
		s.compensate(ctx, tx)
		return tx
	}
	_ = tx.membershipCreated()

	return tx
}

// compensate deletes the organization row written by tx. Failure leaves an
// organization without memberships, which readers never see.
func (s *Service) compensate(ctx context.Context, tx *Transaction) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	err := s.orgs.Delete(ctx, tx.OrgID)
	if err != nil && !errors.Is(err, store.ErrOrganizationNotFound) {
		_ = tx.compensationFailed(err)
		s.metrics.CompensationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		log.Error().
			Err(err).
			AnErr("cause", tx.Err).
			Str("org_id", tx.OrgID.String()).
			Str("profile_id", tx.OwnerID.String()).
			Msg("Compensating delete failed, organization left without members")
		s.cfg.Reporter.Report(ctx, err, map[string]string{
			"org_id":     tx.OrgID.String(),
			"profile_id": tx.OwnerID.String(),
			"state":      string(tx.State),
		})
		return
	}

	_ = tx.compensated()
	s.metrics.CompensationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "compensated")))
	log.Warn().
		AnErr("cause", tx.Err).
		Str("org_id", tx.OrgID.String()).
		Msg("Owner membership failed, organization removed")
}

func (s *Service) transactionError(op string, tx *Transaction) *Error {
	e := classify(op, tx.Err, msgCreateFailed)
	if tx.CompensationErr == nil && tx.State != TxCompensated {
		// organization insert failed, nothing was written
		return e
	}

	message := e.Message
	if e.Kind == KindInternal {
		message = msgMembershipFail
	}
	return &Error{
		Kind:      KindPartialProvisioning,
		CauseKind: e.Kind,
		Op:        op,
		Message:   message,
		Err:       tx.Err,
	}
}

func (s *Service) recordFailure(ctx context.Context, e *Error, orgID, profileID uuid.UUID) {
	s.metrics.ProvisioningFailuresTotal.Add(ctx, 1, kindAttr(e.Kind))
	log.Warn().
		Err(e).
		Str("kind", e.Kind.String()).
		Str("org_id", orgID.String()).
		Str("profile_id", profileID.String()).
		Msg("Failed to create organization")
}

// ValidateAccess reports whether profileID is a member of orgID. Any error,
// including a missing membership, denies access.
func (s *Service) ValidateAccess(ctx context.Context, profileID, orgID uuid.UUID) bool {
	allowed := s.isMember(ctx, profileID, orgID)
	s.metrics.AccessChecks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("allowed", allowed)))
	return allowed
}

func (s *Service) isMember(ctx context.Context, profileID, orgID uuid.UUID) bool {
	if profileID == uuid.Nil || orgID == uuid.Nil {
		return false
	}

	_, err := s.memberships.Get(ctx, orgID, profileID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrMembershipNotFound):
		return false
	default:
		log.Error().
			Err(err).
			Str("org_id", orgID.String()).
			Str("profile_id", profileID.String()).
			Msg("Access check failed, denying")
		return false
	}
}

// Members lists the memberships of orgID. The caller must be a member.
func (s *Service) Members(ctx context.Context, profileID, orgID uuid.UUID) ([]*models.Membership, error) {
	const op = "list members"

	if profileID == uuid.Nil {
		return nil, validationError(op, msgProfileRequired)
	}
	if orgID == uuid.Nil {
		return nil, validationError(op, msgOrgRequired)
	}

	if _, err := s.memberships.Get(ctx, orgID, profileID); err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return nil, &Error{Kind: KindAccessPolicy, CauseKind: KindAccessPolicy, Op: op, Message: msgNotMember, Err: err}
		}
		return nil, classify(op, err, msgFetchFailed)
	}

	members, err := s.memberships.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, classify(op, err, msgFetchFailed)
	}

	return members, nil
}

func kindAttr(k Kind) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", k.String()))
}
