package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-event-registration/internal/api/middleware"

	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
)

// MockEventService はEventServiceInterfaceのモック
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) event(args mock.Arguments) (*event.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) events(args mock.Arguments) ([]*event.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockEventService) CreateEvent(ctx context.Context, p identity.Principal, input application.CreateEventInput) (*event.Event, error) {
	return m.event(m.Called(ctx, p, input))
}

func (m *MockEventService) GetEvent(ctx context.Context, p identity.Principal, id string) (*event.Event, error) {
	return m.event(m.Called(ctx, p, id))
}

func (m *MockEventService) ListEvents(ctx context.Context, q application.EventQuery, limit, offset int) ([]*event.Event, error) {
	return m.events(m.Called(ctx, q, limit, offset))
}

func (m *MockEventService) Trending(ctx context.Context) ([]application.TrendingEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]application.TrendingEvent), args.Error(1)
}

func (m *MockEventService) Dashboard(ctx context.Context, p identity.Principal) (*application.Dashboard, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.Dashboard), args.Error(1)
}

func (m *MockEventService) ListMine(ctx context.Context, p identity.Principal, limit, offset int) ([]*event.Event, error) {
	return m.events(m.Called(ctx, p, limit, offset))
}

func (m *MockEventService) ListPendingReview(ctx context.Context, p identity.Principal, limit, offset int) ([]*event.Event, error) {
	return m.events(m.Called(ctx, p, limit, offset))
}

func (m *MockEventService) UpdateEvent(ctx context.Context, p identity.Principal, id string, u event.Update) (*event.Event, error) {
	return m.event(m.Called(ctx, p, id, u))
}

func (m *MockEventService) ChangeStatus(ctx context.Context, p identity.Principal, id string, to event.Status) (*event.Event, error) {
	return m.event(m.Called(ctx, p, id, to))
}

func (m *MockEventService) Review(ctx context.Context, p identity.Principal, id string, to event.Status) (*event.Event, error) {
	return m.event(m.Called(ctx, p, id, to))
}

func (m *MockEventService) DeleteEvent(ctx context.Context, p identity.Principal, id string) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *MockEventService) GetAvailability(ctx context.Context, p identity.Principal, id string) (*application.Availability, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.Availability), args.Error(1)
}

func (m *MockEventService) GetAnalytics(ctx context.Context, p identity.Principal, id string) (*application.Analytics, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.Analytics), args.Error(1)
}

// MockRegistrationService はRegistrationServiceInterfaceのモック
type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) registration(args mock.Arguments) (*registration.Registration, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registration.Registration), args.Error(1)
}

func (m *MockRegistrationService) registrations(args mock.Arguments) ([]*registration.Registration, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*registration.Registration), args.Error(1)
}

func (m *MockRegistrationService) Register(ctx context.Context, p identity.Principal, input application.RegisterInput) (*registration.Registration, error) {
	return m.registration(m.Called(ctx, p, input))
}

func (m *MockRegistrationService) Cancel(ctx context.Context, p identity.Principal, eventID string) error {
	return m.Called(ctx, p, eventID).Error(0)
}

func (m *MockRegistrationService) UploadProof(ctx context.Context, p identity.Principal, registrationID, proofRef string) (*registration.Registration, error) {
	return m.registration(m.Called(ctx, p, registrationID, proofRef))
}

func (m *MockRegistrationService) DecidePayment(ctx context.Context, p identity.Principal, registrationID string, decision registration.Decision) (*registration.Registration, error) {
	return m.registration(m.Called(ctx, p, registrationID, decision))
}

func (m *MockRegistrationService) MarkAttended(ctx context.Context, p identity.Principal, registrationID string) (*registration.Registration, error) {
	return m.registration(m.Called(ctx, p, registrationID))
}

func (m *MockRegistrationService) Get(ctx context.Context, p identity.Principal, registrationID string) (*registration.Registration, error) {
	return m.registration(m.Called(ctx, p, registrationID))
}

func (m *MockRegistrationService) ListMine(ctx context.Context, p identity.Principal) ([]*registration.Registration, error) {
	return m.registrations(m.Called(ctx, p))
}

func (m *MockRegistrationService) ListForEvent(ctx context.Context, p identity.Principal, eventID string) ([]*registration.Registration, error) {
	return m.registrations(m.Called(ctx, p, eventID))
}

// MockTeamService はTeamServiceInterfaceのモック
type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) team(args mock.Arguments) (*team.Team, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*team.Team), args.Error(1)
}

func (m *MockTeamService) teams(args mock.Arguments) ([]*team.Team, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*team.Team), args.Error(1)
}

func (m *MockTeamService) Create(ctx context.Context, p identity.Principal, input application.CreateTeamInput) (*team.Team, error) {
	return m.team(m.Called(ctx, p, input))
}

func (m *MockTeamService) Join(ctx context.Context, p identity.Principal, inviteCode string) (*team.Team, error) {
	return m.team(m.Called(ctx, p, inviteCode))
}

func (m *MockTeamService) Disband(ctx context.Context, p identity.Principal, teamID string) (*team.Team, error) {
	return m.team(m.Called(ctx, p, teamID))
}

func (m *MockTeamService) GetByInviteCode(ctx context.Context, inviteCode string) (*team.Team, error) {
	return m.team(m.Called(ctx, inviteCode))
}

func (m *MockTeamService) MyTeam(ctx context.Context, p identity.Principal, eventID string) (*team.Team, error) {
	return m.team(m.Called(ctx, p, eventID))
}

func (m *MockTeamService) ListMine(ctx context.Context, p identity.Principal) ([]*team.Team, error) {
	return m.teams(m.Called(ctx, p))
}

func (m *MockTeamService) ListForEvent(ctx context.Context, p identity.Principal, eventID string) ([]*team.Team, error) {
	return m.teams(m.Called(ctx, p, eventID))
}

// MockFeedbackService はFeedbackServiceInterfaceのモック
type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) feedback(args mock.Arguments) (*feedback.Feedback, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feedback.Feedback), args.Error(1)
}

func (m *MockFeedbackService) Submit(ctx context.Context, p identity.Principal, eventID string, input application.SubmitFeedbackInput) (*feedback.Feedback, error) {
	return m.feedback(m.Called(ctx, p, eventID, input))
}

func (m *MockFeedbackService) Mine(ctx context.Context, p identity.Principal, eventID string) (*feedback.Feedback, error) {
	return m.feedback(m.Called(ctx, p, eventID))
}

func (m *MockFeedbackService) Report(ctx context.Context, p identity.Principal, eventID string) (*application.FeedbackReport, error) {
	args := m.Called(ctx, p, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.FeedbackReport), args.Error(1)
}

var (
	organizer   = identity.Principal{ID: "org-1", Role: identity.RoleOrganizer}
	participant = identity.Principal{ID: "user-1", Role: identity.RoleParticipant, Internal: true}
	admin       = identity.Principal{ID: "admin-1", Role: identity.RoleAdmin}
)

// newContext はテスト用のコンテキストを作成する。body が空ならボディなし
func newContext(e *echo.Echo, method, target, body string, p identity.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p.ID != "" {
		middleware.SetPrincipal(c, p)
	}
	return c, rec
}
