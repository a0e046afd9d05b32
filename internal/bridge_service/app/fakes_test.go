package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/platform/logger"
)

func discardLogger() *slog.Logger {
	return logger.Discard()
}

type storedMedia struct {
	MessageID string
	Name      string
	Data      []byte
}

type memoryRecord struct {
	id      string
	claimed bool
	emitted bool
}

// memoryStore is an idempotent in-memory domain.MessageStore.
type memoryStore struct {
	mu          sync.Mutex
	byExternal  map[string]*memoryRecord
	registered  []domain.InboundMessage
	media       []storedMedia
	events      []domain.InboundSMSEvent
	delivered   []string
	registerErr error
	mediaErr    error
	emitErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byExternal: make(map[string]*memoryRecord)}
}

func (s *memoryStore) RegisterMessage(_ context.Context, msg domain.InboundMessage) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return domain.Registration{}, s.registerErr
	}
	key := msg.ProviderKey + "/" + msg.ExternalMessageID
	if rec, ok := s.byExternal[key]; ok {
		if rec.emitted || rec.claimed {
			return domain.Registration{ID: rec.id, Duplicate: true}, nil
		}
		rec.claimed = true
		return domain.Registration{ID: rec.id, Duplicate: true, Resume: true}, nil
	}
	id := fmt.Sprintf("%d", len(s.registered)+42)
	s.byExternal[key] = &memoryRecord{id: id, claimed: true}
	s.registered = append(s.registered, msg)
	return domain.Registration{ID: id}, nil
}

func (s *memoryStore) AddMedia(_ context.Context, messageID, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mediaErr != nil {
		return s.mediaErr
	}
	s.media = append(s.media, storedMedia{MessageID: messageID, Name: name, Data: data})
	return nil
}

func (s *memoryStore) SetDelivered(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, messageID)
	return nil
}

func (s *memoryStore) EmitInboundEvent(_ context.Context, evt domain.InboundSMSEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.byExternal[evt.ProviderKey+"/"+evt.ExternalMessageID]
	if s.emitErr != nil {
		if rec != nil {
			rec.claimed = false
		}
		return s.emitErr
	}
	if rec != nil {
		rec.claimed, rec.emitted = false, true
	}
	s.events = append(s.events, evt)
	return nil
}
