package memory

import (
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
)

func cloneEvent(e *event.Event) *event.Event {
	c := *e
	if e.FormFields != nil {
		c.FormFields = make([]event.FormField, len(e.FormFields))
		for i, f := range e.FormFields {
			f.Options = append([]string(nil), f.Options...)
			c.FormFields[i] = f
		}
	}
	c.Items = cloneItems(e.Items)
	return &c
}

func cloneItems(items []event.MerchandiseItem) []event.MerchandiseItem {
	if items == nil {
		return nil
	}
	out := make([]event.MerchandiseItem, len(items))
	for i, item := range items {
		item.Variants = append([]event.Variant(nil), item.Variants...)
		out[i] = item
	}
	return out
}

func cloneRegistration(r *registration.Registration) *registration.Registration {
	c := *r
	c.Items = append([]registration.LineItem(nil), r.Items...)
	if r.FormAnswers != nil {
		c.FormAnswers = make(map[string]string, len(r.FormAnswers))
		for k, v := range r.FormAnswers {
			c.FormAnswers[k] = v
		}
	}
	return &c
}

func cloneTeam(t *team.Team) *team.Team {
	c := *t
	c.Members = append([]team.Member(nil), t.Members...)
	return &c
}

func cloneMessage(m *outbox.Message) *outbox.Message {
	c := *m
	return &c
}
