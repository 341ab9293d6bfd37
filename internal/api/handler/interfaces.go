package handler

import (
	"context"

	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, p identity.Principal, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, p identity.Principal, id string) (*event.Event, error)
	ListEvents(ctx context.Context, q application.EventQuery, limit, offset int) ([]*event.Event, error)
	Trending(ctx context.Context) ([]application.TrendingEvent, error)
	ListMine(ctx context.Context, p identity.Principal, limit, offset int) ([]*event.Event, error)
	ListPendingReview(ctx context.Context, p identity.Principal, limit, offset int) ([]*event.Event, error)
	UpdateEvent(ctx context.Context, p identity.Principal, id string, u event.Update) (*event.Event, error)
	ChangeStatus(ctx context.Context, p identity.Principal, id string, to event.Status) (*event.Event, error)
	Review(ctx context.Context, p identity.Principal, id string, to event.Status) (*event.Event, error)
	DeleteEvent(ctx context.Context, p identity.Principal, id string) error
	GetAvailability(ctx context.Context, p identity.Principal, id string) (*application.Availability, error)
	GetAnalytics(ctx context.Context, p identity.Principal, id string) (*application.Analytics, error)
	Dashboard(ctx context.Context, p identity.Principal) (*application.Dashboard, error)
}

// RegistrationServiceInterface は登録サービスのインターフェース
type RegistrationServiceInterface interface {
	Register(ctx context.Context, p identity.Principal, input application.RegisterInput) (*registration.Registration, error)
	Cancel(ctx context.Context, p identity.Principal, eventID string) error
	UploadProof(ctx context.Context, p identity.Principal, registrationID, proofRef string) (*registration.Registration, error)
	DecidePayment(ctx context.Context, p identity.Principal, registrationID string, decision registration.Decision) (*registration.Registration, error)
	MarkAttended(ctx context.Context, p identity.Principal, registrationID string) (*registration.Registration, error)
	Get(ctx context.Context, p identity.Principal, registrationID string) (*registration.Registration, error)
	ListMine(ctx context.Context, p identity.Principal) ([]*registration.Registration, error)
	ListForEvent(ctx context.Context, p identity.Principal, eventID string) ([]*registration.Registration, error)
}

// TeamServiceInterface はチームサービスのインターフェース
type TeamServiceInterface interface {
	Create(ctx context.Context, p identity.Principal, input application.CreateTeamInput) (*team.Team, error)
	Join(ctx context.Context, p identity.Principal, inviteCode string) (*team.Team, error)
	Disband(ctx context.Context, p identity.Principal, teamID string) (*team.Team, error)
	GetByInviteCode(ctx context.Context, inviteCode string) (*team.Team, error)
	MyTeam(ctx context.Context, p identity.Principal, eventID string) (*team.Team, error)
	ListMine(ctx context.Context, p identity.Principal) ([]*team.Team, error)
	ListForEvent(ctx context.Context, p identity.Principal, eventID string) ([]*team.Team, error)
}

// FeedbackServiceInterface は評価サービスのインターフェース
type FeedbackServiceInterface interface {
	Submit(ctx context.Context, p identity.Principal, eventID string, input application.SubmitFeedbackInput) (*feedback.Feedback, error)
	Mine(ctx context.Context, p identity.Principal, eventID string) (*feedback.Feedback, error)
	Report(ctx context.Context, p identity.Principal, eventID string) (*application.FeedbackReport, error)
}
