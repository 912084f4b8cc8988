package mocks

import (
	"context"
	"sync"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
)

// EventRecorderSpy captures recorded audit events in memory.
type EventRecorderSpy struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
}

// Record appends event.
func (s *EventRecorderSpy) Record(_ context.Context, event *domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the recorded events.
func (s *EventRecorderSpy) Events() []*domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.AuditEvent(nil), s.events...)
}

// OfKind returns the recorded events of kind.
func (s *EventRecorderSpy) OfKind(kind domain.EventKind) []*domain.AuditEvent {
	var out []*domain.AuditEvent
	for _, event := range s.Events() {
		if event.Kind == kind {
			out = append(out, event)
		}
	}
	return out
}
