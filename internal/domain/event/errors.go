package event

import "github.com/sanosuguru/go-event-registration/internal/domain/apperror"

// Event ドメインのエラー定義
var (
	ErrEventNotFound          = apperror.New(apperror.KindNotFound, "event not found")
	ErrTitleRequired          = apperror.New(apperror.KindValidation, "event title is required")
	ErrVenueRequired          = apperror.New(apperror.KindValidation, "event venue is required")
	ErrStartRequired          = apperror.New(apperror.KindValidation, "event start time is required")
	ErrInvalidKind            = apperror.New(apperror.KindValidation, "event kind must be normal or merchandise")
	ErrInvalidSeatLimit       = apperror.New(apperror.KindValidation, "seat limit must be zero (unlimited) or positive")
	ErrInvalidEventTime       = apperror.New(apperror.KindValidation, "event end must be after its start")
	ErrInvalidFee             = apperror.New(apperror.KindValidation, "registration fee must not be negative")
	ErrInvalidTeamSize        = apperror.New(apperror.KindValidation, "team size bounds must satisfy 1 <= min <= max")
	ErrInvalidPurchaseLimit   = apperror.New(apperror.KindValidation, "purchase limit must not be negative")
	ErrInvalidPrice           = apperror.New(apperror.KindValidation, "merchandise price must not be negative")
	ErrInvalidStock           = apperror.New(apperror.KindValidation, "stock must not be negative")
	ErrInvalidFormField       = apperror.New(apperror.KindValidation, "invalid form field")
	ErrInvalidTransition      = apperror.New(apperror.KindConflict, "invalid status transition")
	ErrNotOpen                = apperror.New(apperror.KindConflict, "event is not open for registration")
	ErrEventFull              = apperror.New(apperror.KindCapacity, "event is full")
	ErrDeadlinePassed         = apperror.New(apperror.KindValidation, "registration deadline has passed")
	ErrNotEligible            = apperror.New(apperror.KindForbidden, "this event is open to internal members only")
	ErrTeamEventRequiresTeam  = apperror.New(apperror.KindValidation, "this is a team event; create or join a team to register")
	ErrNotTeamEvent           = apperror.New(apperror.KindValidation, "this event does not support team registration")
	ErrNotEditable            = apperror.New(apperror.KindConflict, "event cannot be edited in its current status")
	ErrRestrictedEdit         = apperror.New(apperror.KindValidation, "only description, deadline extension and capacity increase are allowed")
	ErrSeatLimitDecrease      = apperror.New(apperror.KindValidation, "seat limit can only be raised")
	ErrDeadlineShortened      = apperror.New(apperror.KindValidation, "registration deadline can only be extended")
	ErrFormLocked             = apperror.New(apperror.KindConflict, "registration form is locked")
	ErrNotOwner               = apperror.New(apperror.KindForbidden, "not your event")
	ErrOptimisticLockConflict = apperror.New(apperror.KindConflict, "event was modified concurrently")
	ErrItemNotFound           = apperror.New(apperror.KindValidation, "merchandise item not found")
	ErrVariantNotFound        = apperror.New(apperror.KindValidation, "merchandise variant not found")
	ErrInsufficientStock      = apperror.New(apperror.KindCapacity, "not enough stock")
	ErrPurchaseLimitExceeded  = apperror.New(apperror.KindValidation, "purchase limit exceeded")
	ErrNoSelection            = apperror.New(apperror.KindValidation, "select at least one merchandise item")
	ErrInvalidQuantity        = apperror.New(apperror.KindValidation, "quantity must be between 1 and 1000")
	ErrDuplicateVariant       = apperror.New(apperror.KindValidation, "duplicate merchandise variant")
	ErrAnswerRequired         = apperror.New(apperror.KindValidation, "required form answer is missing")
	ErrInvalidAnswer          = apperror.New(apperror.KindValidation, "invalid form answer")
)
