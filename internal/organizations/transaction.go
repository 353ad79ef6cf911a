package organizations

import (
	"fmt"

	"github.com/google/uuid"
)

// TxState is the progress of a two-step provisioning.
type TxState string

const (
	TxPending             TxState = "pending"
	TxOrganizationCreated TxState = "organization_created"
	TxMembershipCreated   TxState = "membership_created"
	TxCompensated         TxState = "compensated"
	TxFailed              TxState = "failed"
)

var txTransitions = map[TxState][]TxState{
	TxPending:             {TxOrganizationCreated, TxFailed},
	TxOrganizationCreated: {TxMembershipCreated, TxCompensated, TxFailed},
}

// Transaction records one attempt at creating an organization with its owner
// membership on a store without multi-row transactions.
//
// It ends in exactly one terminal state: membership_created on success,
// compensated when the organization row was removed after a membership
// failure, or failed when either nothing was written or the compensating
// delete also failed (leaving an organization without memberships).
type Transaction struct {
	OrgID   uuid.UUID
	OwnerID uuid.UUID
	State   TxState

	// Err is the error that stopped the forward path.
	Err error
	// CompensationErr is set when the compensating delete failed.
	CompensationErr error
}

// NewTransaction starts a pending transaction.
func NewTransaction(orgID, ownerID uuid.UUID) *Transaction {
	return &Transaction{OrgID: orgID, OwnerID: ownerID, State: TxPending}
}

// Terminal reports whether no further transitions are possible.
func (t *Transaction) Terminal() bool {
	_, ok := txTransitions[t.State]
	return !ok
}

// Orphaned reports whether the organization row may still exist without any membership.
func (t *Transaction) Orphaned() bool {
	return t.State == TxFailed && t.CompensationErr != nil
}

func (t *Transaction) advance(to TxState) error {
	for _, allowed := range txTransitions[t.State] {
		if allowed == to {
			t.State = to
			return nil
		}
	}
	return fmt.Errorf("invalid provisioning transition %s -> %s", t.State, to)
}

func (t *Transaction) organizationCreated() error {
	return t.advance(TxOrganizationCreated)
}

func (t *Transaction) membershipCreated() error {
	return t.advance(TxMembershipCreated)
}

func (t *Transaction) fail(err error) error {
	t.Err = err
	return t.advance(TxFailed)
}

func (t *Transaction) compensated() error {
	return t.advance(TxCompensated)
}

func (t *Transaction) compensationFailed(err error) error {
	t.CompensationErr = err
	return t.advance(TxFailed)
}
