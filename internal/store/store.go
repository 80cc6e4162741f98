// Package store keeps the coordinator's durable state: steam identities,
// the map pool and team name overrides. Each store is one flat JSON
// document rewritten in full on every mutation, so a crash between calls
// never leaves a half-applied edit.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// loadDoc reads a JSON document into v. A missing file is a first run,
// not an error.
func loadDoc(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// flushDoc rewrites the whole document. Callers hold their store lock
// across the mutation and the flush.
func flushDoc(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
