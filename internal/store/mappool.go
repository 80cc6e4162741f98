package store

import (
	"errors"
	"slices"
	"sync"

	"github.com/Martig3/dathost-discord-scrimbot/internal/engine"
)

var ErrMapExists = errors.New("map already in pool")
var ErrUnknownMap = errors.New("map not in pool")
var ErrPoolFull = errors.New("map pool full")

// MapPool is the orderly list of votable maps. Pool order decides ballot
// symbol assignment, so it is preserved across restarts.
type MapPool struct {
	mu   sync.RWMutex
	path string
	pool []string
}

func OpenMapPool(path string) (*MapPool, error) {
	p := &MapPool{path: path}
	if err := loadDoc(path, &p.pool); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *MapPool) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.pool)
}

func (p *MapPool) Add(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Contains(p.pool, name) {
		return ErrMapExists
	}
	if len(p.pool) >= engine.MaxBallotOptions {
		return ErrPoolFull
	}
	p.pool = append(p.pool, name)
	if err := flushDoc(p.path, p.pool); err != nil {
		p.pool = p.pool[:len(p.pool)-1]
		return err
	}
	return nil
}

func (p *MapPool) Remove(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.Index(p.pool, name)
	if i < 0 {
		return ErrUnknownMap
	}
	prev := slices.Clone(p.pool)
	p.pool = slices.Delete(p.pool, i, i+1)
	if err := flushDoc(p.path, p.pool); err != nil {
		p.pool = prev
		return err
	}
	return nil
}
