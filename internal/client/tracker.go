package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"guestbook/internal/vote"
)

// Tracker remembers the last vote this client cast on each message so the
// next request can say what it is replacing. The server never sees it
// except as the "prev" field.
type Tracker struct {
	mu         sync.RWMutex
	votes      map[int64]vote.Choice
	adminToken string
	path       string
}

type trackerState struct {
	Votes      map[int64]vote.Choice `json:"votes"`
	AdminToken string                `json:"admin_token,omitempty"`
}

// NewTracker returns an in-memory tracker.
func NewTracker() *Tracker {
	return &Tracker{votes: make(map[int64]vote.Choice)}
}

// LoadTracker reads the state file at path. A missing file yields an empty
// tracker that will be written to path on Save.
func LoadTracker(path string) (*Tracker, error) {
	t := NewTracker()
	t.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vote state: %w", err)
	}

	var st trackerState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode vote state %s: %w", path, err)
	}
	for id, c := range st.Votes {
		if c != vote.None {
			t.votes[id] = c
		}
	}
	t.adminToken = st.AdminToken

	return t, nil
}

// Save writes the state file. It is a no-op for in-memory trackers.
func (t *Tracker) Save() error {
	if t.path == "" {
		return nil
	}

	t.mu.RLock()
	st := trackerState{Votes: make(map[int64]vote.Choice, len(t.votes)), AdminToken: t.adminToken}
	for id, c := range t.votes {
		st.Votes[id] = c
	}
	t.mu.RUnlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vote state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	// 一時ファイルに書いてから rename
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write vote state: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("replace vote state: %w", err)
	}
	return nil
}

// Get returns the recorded vote for id, or vote.None.
func (t *Tracker) Get(id int64) vote.Choice {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.votes[id]
}

// Set records c for id. Setting vote.None forgets the id.
func (t *Tracker) Set(id int64, c vote.Choice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c == vote.None {
		delete(t.votes, id)
		return
	}
	t.votes[id] = c
}

func (t *Tracker) Forget(id int64) {
	t.Set(id, vote.None)
}

// Len returns how many messages have a recorded vote.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.votes)
}

func (t *Tracker) AdminToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.adminToken
}

func (t *Tracker) SetAdminToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adminToken = token
}
