package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.KV) {
	t.Helper()
	kv := memory.New()
	s, err := NewService(kv, Config{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost}, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return s, kv
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestService(t)

	u, err := s.Register(ctx, "Ada", "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID == "" || u.PasswordHash == "secret1" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, ok, _ := kv.Load(ctx, storage.KeyUsers); !ok {
		t.Fatal("users slot not written")
	}

	sess, err := s.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.User.ID != u.ID || sess.Token == "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	id, err := s.Verify(sess.Token)
	if err != nil || id != u.ID {
		t.Fatalf("Verify() = %q, %v", id, err)
	}

	got, err := s.User(ctx, id)
	if err != nil || got.Email != "ada@example.com" {
		t.Fatalf("User() = %+v, %v", got, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	if _, err := s.Register(ctx, "Ada", "ada@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		user     string
		email    string
		password string
		want     error
	}{
		{"duplicate email", "Other", "ada@example.com", "secret2", ErrEmailTaken},
		{"empty name", " ", "x@example.com", "secret1", ErrEmptyName},
		{"bad email", "X", "not-an-email", "secret1", ErrInvalidEmail},
		{"short password", "X", "x@example.com", "123", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Register(ctx, tt.user, tt.email, tt.password); !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}

	// email match is case-sensitive, so this is a different account
	if _, err := s.Register(ctx, "Ada", "ADA@example.com", "secret1"); err != nil {
		t.Errorf("case-different email rejected: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	s.Register(ctx, "Ada", "ada@example.com", "secret1")

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong"},
		{"nobody@example.com", "secret1"},
		{"Ada@example.com", "secret1"},
	} {
		if _, err := s.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q) error = %v", tc.email, err)
		}
	}
}

func TestVerifyRejectsInvalidTokens(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	s.Register(ctx, "Ada", "ada@example.com", "secret1")
	sess, err := s.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	other, _ := NewService(memory.New(), Config{Secret: []byte("other"), BcryptCost: bcrypt.MinCost}, nil)
	if _, err := other.Verify(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret accepted: %v", err)
	}
	if _, err := s.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage accepted: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if _, err := s.Verify(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}
}

func TestLatencyHonoursContext(t *testing.T) {
	s, _ := newTestService(t)
	s.cfg.Latency = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Login(ctx, "a@b.c", "secret1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
