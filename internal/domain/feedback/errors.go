package feedback

import "github.com/sanosuguru/go-event-registration/internal/domain/apperror"

// Feedback ドメインのエラー定義
var (
	ErrFeedbackNotFound = apperror.New(apperror.KindNotFound, "feedback not found")
	ErrInvalidRating    = apperror.New(apperror.KindValidation, "rating must be between 1 and 5")
	ErrNotAttended      = apperror.New(apperror.KindForbidden, "feedback can only be given for events you have attended")
	ErrAlreadySubmitted = apperror.New(apperror.KindConflict, "feedback has already been submitted for this event")
)
