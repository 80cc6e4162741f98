package store

import (
	"errors"
	"regexp"
	"sync"
)

var ErrBadSteamID = errors.New("malformed steam id")

// steamIDPattern is the classic textual form, STEAM_X:Y:Z.
var steamIDPattern = regexp.MustCompile(`^STEAM_[0-5]:[01]:[0-9]+$`)

// SteamIDs maps chat user IDs to their steam identities.
type SteamIDs struct {
	mu   sync.RWMutex
	path string
	ids  map[string]string
}

func OpenSteamIDs(path string) (*SteamIDs, error) {
	s := &SteamIDs{path: path, ids: map[string]string{}}
	if err := loadDoc(path, &s.ids); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SteamIDs) Get(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[userID]
	return id, ok
}

func (s *SteamIDs) Has(userID string) bool {
	_, ok := s.Get(userID)
	return ok
}

// Set validates the steam id, records it and flushes before returning.
func (s *SteamIDs) Set(userID, steamID string) error {
	if !steamIDPattern.MatchString(steamID) {
		return ErrBadSteamID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.ids[userID]
	s.ids[userID] = steamID
	if err := flushDoc(s.path, s.ids); err != nil {
		if had {
			s.ids[userID] = prev
		} else {
			delete(s.ids, userID)
		}
		return err
	}
	return nil
}
