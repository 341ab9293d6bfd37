package team

import "github.com/sanosuguru/go-event-registration/internal/domain/apperror"

// Team ドメインのエラー定義
var (
	ErrTeamNotFound          = apperror.New(apperror.KindNotFound, "team not found")
	ErrInvalidInviteCode     = apperror.New(apperror.KindNotFound, "invalid invite code")
	ErrTeamNameRequired      = apperror.New(apperror.KindValidation, "team name is required")
	ErrInvalidTargetSize     = apperror.New(apperror.KindValidation, "team size is out of range")
	ErrAlreadyInTeam         = apperror.New(apperror.KindConflict, "you already belong to a team for this event")
	ErrTeamFull              = apperror.New(apperror.KindConflict, "team is already full")
	ErrTeamNotActive         = apperror.New(apperror.KindConflict, "team is no longer active")
	ErrNotLeader             = apperror.New(apperror.KindForbidden, "only the team leader can disband the team")
	ErrCannotDisbandComplete = apperror.New(apperror.KindConflict, "cannot disband a completed team")
	ErrInviteCodeExhausted   = apperror.New(apperror.KindInternal, "could not allocate a unique invite code")
)
