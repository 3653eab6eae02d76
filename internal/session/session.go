// Package session holds the local credential state: the bearer token and the
// cached account snapshot, persisted to a single JSON file with explicit
// Load/Save/Clear operations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/atdata/ishare/internal/wallet"
)

// ErrNotAuthenticated is returned by Load when no session file exists.
var ErrNotAuthenticated = errors.New("not logged in")

// Session is what survives between CLI invocations. The account snapshot is a
// cache: authoritative only until the next profile refresh overwrites it.
type Session struct {
	Token   string         `json:"token"`
	Account wallet.Account `json:"account"`
}

// Store reads and writes the session file. The zero value is not usable;
// construct with NewStore.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath places the session file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}

	return filepath.Join(dir, "ishare", "session.json"), nil
}

// Load reads the stored session. A missing file means ErrNotAuthenticated;
// a corrupt file is an error, not a silent logout.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNotAuthenticated
		}

		return Session{}, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	err = json.Unmarshal(data, &sess)
	if err != nil {
		return Session{}, fmt.Errorf("decode session file: %w", err)
	}

	if sess.Token == "" {
		return Session{}, ErrNotAuthenticated
	}

	return sess, nil
}

// Save writes the session atomically (temp file + rename) with 0600 perms;
// the token is a credential.
func (s *Store) Save(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)

	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("write session file: %w", err)
	}

	err = os.Chmod(tmpName, 0o600)
	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("chmod session file: %w", err)
	}

	err = os.Rename(tmpName, s.path)
	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}

// Clear removes the session file. Clearing an already-absent session is not
// an error; logout must be idempotent.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}

	return nil
}
