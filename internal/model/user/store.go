package user

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrConflict        = errors.New("username or email already in use")
	ErrMessageNotFound = errors.New("message not found")
)

// Store persists users together with their message lists.
type Store interface {
	Create(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// FindByIdentifier matches either the email or the username.
	FindByIdentifier(ctx context.Context, identifier string) (User, error)
	// Update replaces the account fields of an existing user. Messages are left untouched.
	Update(ctx context.Context, u User) error
	// Delete removes the user and every message it received.
	Delete(ctx context.Context, id string) error
	SetAcceptingMessages(ctx context.Context, id string, accepting bool) (User, error)
	AppendMessage(ctx context.Context, id string, msg Message) error
	DeleteMessage(ctx context.Context, id, messageID string) error
	// Messages returns the user's messages in insertion order.
	Messages(ctx context.Context, id string) ([]Message, error)
	Close(ctx context.Context) error
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (s *MemoryStore) Create(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return ErrConflict
	}

	stored := u
	stored.Messages = append([]Message(nil), u.Messages...)
	s.users[u.ID] = &stored
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(u), nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (User, error) {
	return s.find(func(u *User) bool { return u.Username == username })
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (User, error) {
	return s.find(func(u *User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *MemoryStore) FindByIdentifier(_ context.Context, identifier string) (User, error) {
	return s.find(func(u *User) bool {
		return strings.EqualFold(u.Email, identifier) || u.Username == identifier
	})
}

func (s *MemoryStore) Update(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.users {
		if id != u.ID && (other.Username == u.Username || strings.EqualFold(other.Email, u.Email)) {
			return ErrConflict
		}
	}

	messages := existing.Messages
	updated := u
	updated.Messages = messages
	s.users[u.ID] = &updated
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) SetAcceptingMessages(_ context.Context, id string, accepting bool) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.IsAcceptingMessages = accepting
	return clone(u), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Messages = append(u.Messages, msg)
	return nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, id, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for i, msg := range u.Messages {
		if msg.ID == messageID {
			u.Messages = append(u.Messages[:i:i], u.Messages[i+1:]...)
			return nil
		}
	}
	return ErrMessageNotFound
}

func (s *MemoryStore) Messages(_ context.Context, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Message(nil), u.Messages...), nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) find(match func(*User) bool) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return User{}, ErrNotFound
}

func clone(u *User) User {
	c := *u
	c.Messages = append([]Message(nil), u.Messages...)
	return c
}

// NewestFirst returns a copy of messages ordered by creation time, newest first.
func NewestFirst(messages []Message) []Message {
	sorted := append([]Message(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}
