package store

import (
	"errors"
	"sync"
)

var ErrNameTooLong = errors.New("team name too long")

// MaxTeamNameLen matches the longest label the game server will render.
const MaxTeamNameLen = 18

// TeamNames holds per-captain team name overrides, keyed by the captain's
// chat user ID.
type TeamNames struct {
	mu    sync.RWMutex
	path  string
	names map[string]string
}

func OpenTeamNames(path string) (*TeamNames, error) {
	t := &TeamNames{path: path, names: map[string]string{}}
	if err := loadDoc(path, &t.names); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TeamNames) Get(captainID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.names[captainID]
	return name, ok
}

func (t *TeamNames) Set(captainID, name string) error {
	if len(name) > MaxTeamNameLen {
		return ErrNameTooLong
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, had := t.names[captainID]
	t.names[captainID] = name
	if err := flushDoc(t.path, t.names); err != nil {
		if had {
			t.names[captainID] = prev
		} else {
			delete(t.names, captainID)
		}
		return err
	}
	return nil
}
