package registration

import "github.com/sanosuguru/go-event-registration/internal/domain/apperror"

// Registration ドメインのエラー定義
var (
	ErrRegistrationNotFound  = apperror.New(apperror.KindNotFound, "registration not found")
	ErrAlreadyRegistered     = apperror.New(apperror.KindConflict, "already registered for this event")
	ErrNotActive             = apperror.New(apperror.KindConflict, "registration is not active")
	ErrAlreadyAttended       = apperror.New(apperror.KindConflict, "registration is already marked as attended")
	ErrCannotCancelAttended  = apperror.New(apperror.KindConflict, "attended registrations cannot be cancelled")
	ErrInvalidPaymentState   = apperror.New(apperror.KindConflict, "invalid payment status transition")
	ErrPaymentNotRequired    = apperror.New(apperror.KindConflict, "this registration does not require payment")
	ErrAmountOutOfRange      = apperror.New(apperror.KindValidation, "order amount is out of range")
	ErrProofRequired         = apperror.New(apperror.KindValidation, "payment proof is required")
	ErrNotOwner              = apperror.New(apperror.KindForbidden, "not your registration")
)
