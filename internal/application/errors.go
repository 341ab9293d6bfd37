package application

import "github.com/sanosuguru/go-event-registration/internal/domain/apperror"

// アプリケーション層のエラー定義
var (
	ErrForbidden       = apperror.New(apperror.KindForbidden, "operation is not permitted for this principal")
	ErrInvalidStatus   = apperror.New(apperror.KindValidation, "unknown status")
	ErrInvalidDecision = apperror.New(apperror.KindValidation, "decision must be approve or reject")
	ErrInvalidRange    = apperror.New(apperror.KindValidation, "from must not be after to")
)
