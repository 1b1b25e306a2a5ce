package service

import (
	"sync"
	"time"

	"github.com/fileconv/fileconv/internal/convert/domain"
)

// registry is the in-memory artifact and options store. Everything here is
// rebuilt from scratch on restart; the retention sweep keeps disk and
// registry in step.
type registry struct {
	mu        sync.RWMutex
	artifacts map[string]*domain.Artifact
	options   map[int64]domain.Options
}

func newRegistry() *registry {
	return &registry{
		artifacts: make(map[string]*domain.Artifact),
		options:   make(map[int64]domain.Options),
	}
}

func (r *registry) register(a *domain.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[a.ID] = a
}

func (r *registry) get(id string) (*domain.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[id]
	return a, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.artifacts, id)
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.artifacts)
}

// expiredSnapshot returns the artifacts older than maxAge at now. Callers
// remove entries individually after the corresponding file is gone, so a
// failed delete never orphans registry state.
func (r *registry) expiredSnapshot(now time.Time, maxAge time.Duration) []*domain.Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []*domain.Artifact
	for _, a := range r.artifacts {
		if a.ExpiredAt(now, maxAge) {
			expired = append(expired, a)
		}
	}
	return expired
}

// optionsFor returns the owner's options, falling back to defaults for
// owners that never changed anything.
func (r *registry) optionsFor(ownerID int64) domain.Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if opts, ok := r.options[ownerID]; ok {
		return opts
	}
	return domain.DefaultOptions()
}

func (r *registry) setOptions(ownerID int64, opts domain.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options[ownerID] = opts
}
