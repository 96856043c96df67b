// Package storetest holds behaviour checks shared by every user.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

// Run exercises store against the user.Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) user.Store) {
	t.Helper()

	t.Run("CreateAndFind", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := sample("u1", "alice", "alice@example.com")

		if err := s.Create(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}

		for name, find := range map[string]func() (user.User, error){
			"id":                  func() (user.User, error) { return s.FindByID(ctx, "u1") },
			"username":            func() (user.User, error) { return s.FindByUsername(ctx, "alice") },
			"email":               func() (user.User, error) { return s.FindByEmail(ctx, "alice@example.com") },
			"identifier/email":    func() (user.User, error) { return s.FindByIdentifier(ctx, "alice@example.com") },
			"identifier/username": func() (user.User, error) { return s.FindByIdentifier(ctx, "alice") },
		} {
			got, err := find()
			if err != nil {
				t.Fatalf("find by %s: %v", name, err)
			}
			if got.ID != "u1" || got.PasswordHash != "hash" || got.VerifyCode != "123456" {
				t.Fatalf("find by %s returned %+v", name, got)
			}
			if !got.VerifyCodeExpiry.Equal(u.VerifyCodeExpiry) {
				t.Fatalf("find by %s: expiry %v, want %v", name, got.VerifyCodeExpiry, u.VerifyCodeExpiry)
			}
		}

		if _, err := s.FindByUsername(ctx, "nobody"); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Conflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.Create(ctx, sample("u1", "alice", "alice@example.com")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Create(ctx, sample("u2", "alice", "other@example.com")); !errors.Is(err, user.ErrConflict) {
			t.Fatalf("duplicate username: expected ErrConflict, got %v", err)
		}
		if err := s.Create(ctx, sample("u3", "bob", "alice@example.com")); !errors.Is(err, user.ErrConflict) {
			t.Fatalf("duplicate email: expected ErrConflict, got %v", err)
		}
	})

	t.Run("UpdateKeepsMessages", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := sample("u1", "alice", "alice@example.com")
		if err := s.Create(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.AppendMessage(ctx, "u1", message("m1", "hello there", 0)); err != nil {
			t.Fatalf("append: %v", err)
		}

		u.IsVerified = true
		u.VerifyCode = ""
		if err := s.Update(ctx, u); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := s.FindByID(ctx, "u1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if !got.IsVerified || got.VerifyCode != "" {
			t.Fatalf("update not applied: %+v", got)
		}
		msgs, err := s.Messages(ctx, "u1")
		if err != nil || len(msgs) != 1 {
			t.Fatalf("messages lost by update: %v %v", msgs, err)
		}

		missing := sample("nope", "ghost", "ghost@example.com")
		if err := s.Update(ctx, missing); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteFreesUsername", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Create(ctx, sample("u1", "alice", "alice@example.com")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.AppendMessage(ctx, "u1", message("m1", "hello there", 0)); err != nil {
			t.Fatalf("append: %v", err)
		}

		if err := s.Delete(ctx, "u1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.FindByID(ctx, "u1"); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "u1"); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}

		if err := s.Create(ctx, sample("u2", "alice", "new@example.com")); err != nil {
			t.Fatalf("recreate username: %v", err)
		}
		if err := s.AppendMessage(ctx, "u2", message("m1", "fresh start", 1)); err != nil {
			t.Fatalf("reuse message id: %v", err)
		}
		msgs, err := s.Messages(ctx, "u2")
		if err != nil || len(msgs) != 1 || msgs[0].Content != "fresh start" {
			t.Fatalf("unexpected messages for new owner: %v %v", msgs, err)
		}
	})

	t.Run("AcceptingMessages", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Create(ctx, sample("u1", "alice", "alice@example.com")); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := s.SetAcceptingMessages(ctx, "u1", false)
		if err != nil {
			t.Fatalf("set accepting: %v", err)
		}
		if got.IsAcceptingMessages {
			t.Fatal("expected acceptance to be off")
		}
		if _, err := s.SetAcceptingMessages(ctx, "missing", true); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Messages", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Create(ctx, sample("u1", "alice", "alice@example.com")); err != nil {
			t.Fatalf("create: %v", err)
		}

		for i, id := range []string{"m1", "m2", "m3"} {
			if err := s.AppendMessage(ctx, "u1", message(id, "message "+id, i)); err != nil {
				t.Fatalf("append %s: %v", id, err)
			}
		}
		if err := s.AppendMessage(ctx, "missing", message("m9", "orphan", 0)); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("append to missing user: expected ErrNotFound, got %v", err)
		}

		msgs, err := s.Messages(ctx, "u1")
		if err != nil {
			t.Fatalf("messages: %v", err)
		}
		if len(msgs) != 3 || msgs[0].ID != "m1" || msgs[2].ID != "m3" {
			t.Fatalf("expected insertion order, got %+v", msgs)
		}

		if err := s.DeleteMessage(ctx, "u1", "m2"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.DeleteMessage(ctx, "u1", "m2"); !errors.Is(err, user.ErrMessageNotFound) {
			t.Fatalf("second delete: expected ErrMessageNotFound, got %v", err)
		}

		msgs, err = s.Messages(ctx, "u1")
		if err != nil {
			t.Fatalf("messages: %v", err)
		}
		if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m3" {
			t.Fatalf("unexpected messages after delete: %+v", msgs)
		}

		if _, err := s.Messages(ctx, "missing"); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func sample(id, username, email string) user.User {
	return user.User{
		ID:                  id,
		Username:            username,
		Email:               email,
		PasswordHash:        "hash",
		VerifyCode:          "123456",
		VerifyCodeExpiry:    base.Add(time.Hour),
		IsAcceptingMessages: true,
		CreatedAt:           base,
	}
}

func message(id, content string, offset int) user.Message {
	return user.Message{ID: id, Content: content, CreatedAt: base.Add(time.Duration(offset) * time.Minute)}
}
