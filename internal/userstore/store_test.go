package userstore

import (
	"context"
	"errors"
	"testing"

	"github.com/quaylabs/syncgate/internal/auth"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndAuthenticate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "", "alice", "s3cret", []string{"admin", "ops"})
	if err != nil {
		t.Fatalf("creating account: %v", err)
	}
	if created.ID() == "" {
		t.Fatal("expected generated id")
	}

	user, err := s.Authenticate(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("authenticating: %v", err)
	}
	if user.ID() != created.ID() {
		t.Errorf("id = %q, want %q", user.ID(), created.ID())
	}
	if roles := user.Roles(); len(roles) != 2 || roles[0] != "admin" || roles[1] != "ops" {
		t.Errorf("roles = %v, want [admin ops]", roles)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "usr-1", "bob", "hunter2", nil); err != nil {
		t.Fatalf("creating account: %v", err)
	}

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "hunter2"},
		{"wrong password", "bob", "wrong"},
		{"empty password", "bob", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, tc.username, tc.password)
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthenticateInactive(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "usr-2", "carol", "pw", nil); err != nil {
		t.Fatalf("creating account: %v", err)
	}
	if err := s.SetActive(ctx, "usr-2", false); err != nil {
		t.Fatalf("deactivating: %v", err)
	}

	if _, err := s.Authenticate(ctx, "carol", "pw"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLookup(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "usr-3", "dave", "pw", []string{"viewer"}); err != nil {
		t.Fatalf("creating account: %v", err)
	}

	user, err := s.Lookup(ctx, "usr-3")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if roles := user.Roles(); len(roles) != 1 || roles[0] != "viewer" {
		t.Errorf("roles = %v, want [viewer]", roles)
	}

	if _, err := s.Lookup(ctx, "usr-missing"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}

	if err := s.SetActive(ctx, "usr-3", false); err != nil {
		t.Fatalf("deactivating: %v", err)
	}
	if _, err := s.Lookup(ctx, "usr-3"); !errors.Is(err, auth.ErrUserInactive) {
		t.Errorf("err = %v, want ErrUserInactive", err)
	}
}

func TestDuplicateUsername(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "", "erin", "pw", nil); err != nil {
		t.Fatalf("creating account: %v", err)
	}
	if _, err := s.Create(ctx, "", "erin", "pw2", nil); err == nil {
		t.Fatal("expected error for duplicate username")
	}
}

func TestCount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("count = %d, %v; want 0, nil", n, err)
	}
	if _, err := s.Create(ctx, "", "frank", "pw", nil); err != nil {
		t.Fatalf("creating account: %v", err)
	}
	if n, _ = s.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
