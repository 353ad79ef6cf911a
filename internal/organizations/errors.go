package organizations

import (
	"context"
	"errors"

	"github.com/wolfeidau/taskboard/internal/store"
)

// Kind classifies a service failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAccessPolicy
	KindUniqueness
	KindTransport
	KindPartialProvisioning
	KindIntegrity
)

// Sentinels usable with errors.Is against any *Error.
var (
	ErrInternal            = errors.New("internal error")
	ErrValidation          = errors.New("validation failed")
	ErrAccessPolicy        = errors.New("access policy violation")
	ErrUniqueness          = errors.New("uniqueness violation")
	ErrTransport           = errors.New("transport error")
	ErrPartialProvisioning = errors.New("partial provisioning failure")
	ErrIntegrity           = errors.New("data integrity error")
)

// User-facing messages.
const (
	msgNameRequired    = "please enter an organization name"
	msgNameLength      = "organization name must be between 2 and 100 characters"
	msgProfileRequired = "you need to be signed in to manage organizations"
	msgOrgRequired     = "an organization is required"
	msgAccessDenied    = "you don't have permission for this, please sign in again"
	msgNameTaken       = "an organization with this name already exists, choose another name"
	msgTransport       = "could not reach the server, check your network connection"
	msgIntegrity       = "organization data is inconsistent, please contact support"
	msgNotMember       = "you are not a member of this organization"
	msgFetchFailed     = "could not load your organizations"
	msgCreateFailed    = "could not create the organization"
	msgMembershipFail  = "could not add you as the organization owner"
	msgUnexpected      = "something went wrong, please try again"
)

// Fallback messages for errors that didn't come from a Service call.
const (
	FetchFailedMessage  = msgFetchFailed
	CreateFailedMessage = msgCreateFailed
	UnexpectedMessage   = msgUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAccessPolicy:
		return "access_policy"
	case KindUniqueness:
		return "uniqueness"
	case KindTransport:
		return "transport"
	case KindPartialProvisioning:
		return "partial_provisioning"
	case KindIntegrity:
		return "integrity"
	default:
		return "internal"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAccessPolicy:
		return ErrAccessPolicy
	case KindUniqueness:
		return ErrUniqueness
	case KindTransport:
		return ErrTransport
	case KindPartialProvisioning:
		return ErrPartialProvisioning
	case KindIntegrity:
		return ErrIntegrity
	default:
		return ErrInternal
	}
}

// Error is returned by every Service operation. Message is safe to show to a
// user; Err carries the underlying store error, if any.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error

	// CauseKind is the classification of Err. It differs from Kind only for
	// partial provisioning, where Kind records what went wrong overall and
	// CauseKind records why the membership insert failed.
	CauseKind Kind
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinels, so errors.Is(err, ErrValidation) works.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func validationError(op, message string) *Error {
	return &Error{Kind: KindValidation, CauseKind: KindValidation, Op: op, Message: message}
}

// classify turns a store error into an *Error. fallback is the message used
// when the error doesn't fall into a known class.
func classify(op string, err error, fallback string) *Error {
	kind, message := classifyKind(err, fallback)
	return &Error{Kind: kind, CauseKind: kind, Op: op, Message: message, Err: err}
}

func classifyKind(err error, fallback string) (Kind, string) {
	switch {
	case errors.Is(err, store.ErrAccessDenied):
		return KindAccessPolicy, msgAccessDenied
	case errors.Is(err, store.ErrOrganizationAlreadyExists):
		return KindUniqueness, msgNameTaken
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindTransport, msgTransport
	default:
		return KindInternal, fallback
	}
}

// KindOf returns the Kind of err, or KindInternal if err isn't an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err, or fallback when err
// isn't an *Error.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
