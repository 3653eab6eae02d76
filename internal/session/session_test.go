package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atdata/ishare/internal/wallet"
)

func TestStore_Roundtrip(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	want := Session{
		Token: "tok-abc",
		Account: wallet.Account{
			ID:            "u1",
			Name:          "Alice",
			Email:         "alice@example.com",
			PhoneNumber:   "0244111222",
			Role:          wallet.RoleBuyer,
			IshareBalance: 5120,
			IsActive:      true,
		},
	}

	err := store.Save(want)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got != want {
		t.Fatalf("roundtrip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.Load()
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
}

func TestStore_LoadEmptyToken(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")

	err := os.WriteFile(path, []byte(`{"token":"","account":{}}`), 0o600)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = NewStore(path).Load()
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated for empty token, got %v", err)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")

	err := os.WriteFile(path, []byte("not json"), 0o600)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = NewStore(path).Load()
	if err == nil || errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("corrupt file must be a distinct error, got %v", err)
	}
}

func TestStore_ClearIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "session.json"))

	err := store.Save(Session{Token: "tok"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	err = store.Clear()
	if err != nil {
		t.Fatalf("first clear: %v", err)
	}

	// Clearing an already-absent session must stay a no-op.
	err = store.Clear()
	if err != nil {
		t.Fatalf("second clear: %v", err)
	}

	_, err = store.Load()
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated after clear, got %v", err)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)

	err := store.Save(Session{Token: "secret"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("session file holds a credential; want 0600, got %o", perm)
	}
}
