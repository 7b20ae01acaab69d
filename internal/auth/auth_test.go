package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pitchlabs/pitchcoach/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(store.NewMemory().Store().Users, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(store.NewMemory().Store().Users, "  ", time.Hour); !errors.Is(err, ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}
	if res.User.PasswordHash != "" {
		t.Fatal("password hash must not leak through auth results")
	}
	if res.User.Username != "alice" {
		t.Fatalf("unexpected username %q", res.User.Username)
	}

	login, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "s3cret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatalf("login returned user %q, registered %q", login.User.ID, res.User.ID)
	}

	claims, err := svc.VerifyToken(login.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Subject != res.User.ID {
		t.Fatalf("token subject %q, want %q", claims.Subject, res.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "  ", Password: "pw"}); !errors.Is(err, ErrUsernameRequired) {
		t.Fatalf("expected ErrUsernameRequired, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "bob", Password: ""}); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "carol", Password: "pw123456"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "carol", Password: "other-pw"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "dave", Password: "correct-horse"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []LoginInput{
		{Username: "dave", Password: "wrong"},
		{Username: "nobody", Password: "correct-horse"},
		{Username: "", Password: "correct-horse"},
		{Username: "dave", Password: ""},
	}
	for _, in := range cases {
		if _, err := svc.Login(ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %+v: expected ErrInvalidCredentials, got %v", in, err)
		}
	}
}

func TestVerifyTokenRejectsForgedToken(t *testing.T) {
	svc := newTestService(t)
	other, err := NewService(store.NewMemory().Store().Users, "different-secret", time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	res, err := other.Register(context.Background(), RegisterInput{Username: "eve", Password: "pw123456"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.VerifyToken(res.Token); err == nil {
		t.Fatal("expected verification to fail for a token signed with another secret")
	}
}
