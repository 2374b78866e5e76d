// Package conversation defines the append-only message log the assistant
// and the action controller write to.
package conversation

import (
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/concierge/internal/domain"
)

// Store is an ordered, append-only message log keyed by conversation ID.
// Insertion order is conversation order.
type Store interface {
	Append(convID string, msg domain.Message)
	Messages(convID string) []domain.Message
	List() []domain.Conversation
}

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*memConv
}

type memConv struct {
	created  time.Time
	updated  time.Time
	messages []domain.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*memConv)}
}

// Append adds msg to the end of the conversation, creating it if needed.
func (s *MemoryStore) Append(convID string, msg domain.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[convID]
	if !ok {
		c = &memConv{created: msg.Timestamp}
		s.convs[convID] = c
	}
	c.messages = append(c.messages, msg)
	c.updated = msg.Timestamp
}

// Messages returns a copy of the conversation's messages in order.
func (s *MemoryStore) Messages(convID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[convID]
	if !ok {
		return nil
	}
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// List returns all conversations, most recently updated first.
func (s *MemoryStore) List() []domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Conversation, 0, len(s.convs))
	for id, c := range s.convs {
		out = append(out, domain.Conversation{ID: id, CreatedAt: c.created, UpdatedAt: c.updated, Messages: len(c.messages)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Last returns the most recent n messages of a conversation.
func Last(s Store, convID string, n int) []domain.Message {
	msgs := s.Messages(convID)
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs
}
