package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockWait = 2 * time.Second

// State is the persisted credential.
type State struct {
	Token   string    `json:"access_token"`
	SavedAt time.Time `json:"saved_at"`
}

// Persister stores the credential across restarts.
type Persister interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// FileStore writes the credential to a JSON file guarded by a sibling lock
// file so concurrent console processes never interleave writes.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore builds a FileStore at path. The lock lives at path + ".lock".
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the credential file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the credential. A missing file resolves to an empty state.
func (s *FileStore) Load() (State, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return State{}, fmt.Errorf("ensure session directory: %w", err)
	}
	unlock, err := s.acquire(true)
	if err != nil {
		return State{}, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read session: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

// Save persists the credential with owner-only permissions. The file is
// replaced atomically.
func (s *FileStore) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}
	unlock, err := s.acquire(false)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear erases the persisted credential. Clearing an absent file succeeds.
func (s *FileStore) Clear() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}
	unlock, err := s.acquire(false)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *FileStore) acquire(shared bool) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), lockWait)
	defer cancel()

	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = s.lock.TryRLockContext(ctx, 25*time.Millisecond)
	} else {
		ok, err = s.lock.TryLockContext(ctx, 25*time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, errors.New("session file is locked by another shortsadmin process")
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// MemoryStore keeps the credential in process memory only. It backs one-shot
// tokens supplied through the environment and tests.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	// SaveErr, when set, is returned by Save and Clear.
	SaveErr error
}

// NewMemoryStore seeds a MemoryStore with token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{state: State{Token: token}}
}

func (m *MemoryStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) Save(state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.state = state
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.state = State{}
	return nil
}
