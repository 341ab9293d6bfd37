package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/infrastructure/memory"
)

// testEnv はメモリストア上に組み立てたサービス一式
type testEnv struct {
	store         *memory.Store
	events        *memory.EventRepository
	registrations *memory.RegistrationRepository
	teams         *memory.TeamRepository
	feedback      *memory.FeedbackRepository
	outbox        *memory.OutboxRepository

	eventService        *EventService
	registrationService *RegistrationService
	teamService         *TeamService
	feedbackService     *FeedbackService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := memory.NewStore()
	env := &testEnv{
		store:         s,
		events:        memory.NewEventRepository(s),
		registrations: memory.NewRegistrationRepository(s),
		teams:         memory.NewTeamRepository(s),
		feedback:      memory.NewFeedbackRepository(s),
		outbox:        memory.NewOutboxRepository(s),
	}
	env.eventService = NewEventService(s, env.events, env.registrations, env.teams, nil, nil)
	env.registrationService = NewRegistrationService(s, env.events, env.registrations, env.outbox, nil, nil)
	env.teamService = NewTeamService(s, env.events, env.registrations, env.teams, env.outbox, nil, nil)
	env.feedbackService = NewFeedbackService(s, env.events, env.registrations, env.feedback)
	return env
}

var (
	testOrganizer = identity.Principal{ID: "org-1", Role: identity.RoleOrganizer}
	testAdmin     = identity.Principal{ID: "admin-1", Role: identity.RoleAdmin}
)

func member(n int) identity.Principal {
	return identity.Principal{ID: fmt.Sprintf("user-%02d", n), Role: identity.RoleParticipant}
}

func baseDetails() event.Details {
	return event.Details{
		Title:   "Tech Fest",
		Venue:   "Auditorium",
		StartAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

// publish はイベントを作成し、承認申請と管理者承認まで進める
func (env *testEnv) publish(t *testing.T, d event.Details) *event.Event {
	t.Helper()
	ctx := context.Background()
	ev, err := env.eventService.CreateEvent(ctx, testOrganizer, CreateEventInput{Details: d, Submit: true})
	require.NoError(t, err)
	ev, err = env.eventService.Review(ctx, testAdmin, ev.ID, event.StatusApproved)
	require.NoError(t, err)
	return ev
}

func (env *testEnv) event(t *testing.T, id string) *event.Event {
	t.Helper()
	ev, err := env.events.GetByID(context.Background(), id)
	require.NoError(t, err)
	return ev
}

func (env *testEnv) occupied(t *testing.T, eventID string) int {
	t.Helper()
	n, err := env.registrations.CountOccupying(context.Background(), nil, eventID)
	require.NoError(t, err)
	return n
}

func (env *testEnv) messages(t *testing.T, topic outbox.Topic) []*outbox.Message {
	t.Helper()
	all, err := env.outbox.All(context.Background())
	require.NoError(t, err)
	var out []*outbox.Message
	for _, m := range all {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
