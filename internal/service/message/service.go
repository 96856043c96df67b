package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

const (
	MinContentLength = 5
	MaxContentLength = 300
)

var (
	ErrInvalidContent  = fmt.Errorf("content must be between %d and %d characters", MinContentLength, MaxContentLength)
	ErrUserNotFound    = errors.New("user not found")
	ErrNotAccepting    = errors.New("user is not accepting messages")
	ErrMessageNotFound = errors.New("message not found or already deleted")
)

// Publisher fans out newly stored messages to live listeners of a user.
type Publisher interface {
	Publish(userID string, msg user.Message)
}

// Service stores anonymous messages on user profiles.
type Service struct {
	store     user.Store
	publisher Publisher
	sent      metric.Int64Counter
	now       func() time.Time
}

// NewService wires the message service. publisher may be nil.
func NewService(store user.Store, publisher Publisher) *Service {
	sent, err := otel.Meter("ghost-note/message").Int64Counter("messages.sent",
		metric.WithDescription("Anonymous messages accepted"))
	if err != nil {
		logrus.Warnf("[message] counter unavailable: %v", err)
	}

	return &Service{
		store:     store,
		publisher: publisher,
		sent:      sent,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Send appends an anonymous message to the profile of username.
func (s *Service) Send(ctx context.Context, username, content string) (user.Message, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < MinContentLength || n > MaxContentLength {
		return user.Message{}, ErrInvalidContent
	}

	u, err := s.lookup(ctx, username)
	if err != nil {
		return user.Message{}, err
	}
	if !u.IsAcceptingMessages {
		return user.Message{}, ErrNotAccepting
	}

	msg := user.Message{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMessage(ctx, u.ID, msg); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Message{}, ErrUserNotFound
		}
		return user.Message{}, fmt.Errorf("store message: %w", err)
	}

	if s.sent != nil {
		s.sent.Add(ctx, 1)
	}
	if s.publisher != nil {
		s.publisher.Publish(u.ID, msg)
	}

	logrus.Debugf("[message] delivered message=%s to user=%s", msg.ID, u.Username)
	return msg, nil
}

// Status reports whether the profile of username accepts messages.
func (s *Service) Status(ctx context.Context, username string) (bool, error) {
	u, err := s.lookup(ctx, username)
	if err != nil {
		return false, err
	}
	return u.IsAcceptingMessages, nil
}

// List returns the messages of userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]user.Message, error) {
	msgs, err := s.store.Messages(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return user.NewestFirst(msgs), nil
}

// Delete removes a single message owned by userID.
func (s *Service) Delete(ctx context.Context, userID, messageID string) error {
	err := s.store.DeleteMessage(ctx, userID, messageID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, user.ErrMessageNotFound), errors.Is(err, user.ErrNotFound):
		return ErrMessageNotFound
	default:
		return fmt.Errorf("delete message: %w", err)
	}
}

func (s *Service) lookup(ctx context.Context, username string) (user.User, error) {
	u, err := s.store.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, user.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}
