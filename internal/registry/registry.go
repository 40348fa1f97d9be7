// Package registry populates the process-wide set of registered schemas from
// a catalog source, exactly once, against an already-open store connection.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/logicsquare/konect-query-gateway/internal/catalog"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
	"github.com/logicsquare/konect-query-gateway/internal/logging"
	"github.com/logicsquare/konect-query-gateway/internal/store"
)

// State is the registry lifecycle: empty until the first load is triggered,
// loading while the single pass runs, loaded forever after (success or
// partial failure alike).
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Registered is a schema that successfully bound to the store
type Registered struct {
	Schema     catalog.Schema
	Collection store.Collection
}

// Registry owns the registration state. The query engine only reads it.
type Registry struct {
	source catalog.Source
	store  store.Store
	logger *logging.Logger

	mu       sync.Mutex
	state    State
	loadDone chan struct{}
	entries  map[string]*Registered
	failures map[string]string
}

// New creates a registry over an injected catalog source and store handle.
// The store connection must already be open; bind failures during the load
// pass surface as per-entry failures, never as a crash.
func New(source catalog.Source, st store.Store, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Registry{
		source:   source,
		store:    st,
		logger:   logger,
		entries:  make(map[string]*Registered),
		failures: make(map[string]string),
	}
}

// EnsureLoaded runs the catalog load pass exactly once per process. Repeat
// calls are no-ops regardless of prior success or failure; concurrent first
// calls block until the single pass completes. It never returns an error:
// failures are recorded in state and surface later as unknown-schema errors
// at query time.
func (r *Registry) EnsureLoaded(ctx context.Context) {
	r.mu.Lock()

	switch r.state {
	case StateLoaded:
		r.mu.Unlock()
		return
	case StateLoading:
		done := r.loadDone
		r.mu.Unlock()
		<-done

		return
	case StateEmpty:
	}

	r.state = StateLoading
	r.loadDone = make(chan struct{})
	done := r.loadDone
	r.mu.Unlock()

	entries, failures := r.loadPass(ctx)

	r.mu.Lock()
	r.entries = entries
	r.failures = failures
	r.state = StateLoaded
	r.mu.Unlock()

	close(done)

	r.logLoadResult()
}

// loadPass iterates the catalog once. A single bad entry is recorded and
// skipped; it must not block the rest.
func (r *Registry) loadPass(_ context.Context) (map[string]*Registered, map[string]string) {
	entries := make(map[string]*Registered)
	failures := make(map[string]string)

	catalogEntries, err := r.source.Entries()
	if err != nil {
		r.logger.ErrorWithErr("failed to enumerate schema catalog", err)
		failures["catalog"] = err.Error()

		return entries, failures
	}

	for _, entry := range catalogEntries {
		name := entry.Schema.Name
		if name == "" {
			name = entry.Origin
		}

		if entry.Err != nil {
			failures[name] = entry.Err.Error()
			continue
		}

		if _, exists := entries[name]; exists {
			failures[name] = errors.Newf(errors.ErrTypeSchemaLoad,
				"duplicate schema name %q", name).Error()

			continue
		}

		schema := entry.Schema

		coll, err := r.store.Bind(&schema)
		if err != nil {
			failures[name] = errors.Wrapf(err, errors.ErrTypeSchemaLoad,
				"failed to register schema %q", name).Error()

			continue
		}

		entries[name] = &Registered{Schema: schema, Collection: coll}
	}

	return entries, failures
}

func (r *Registry) logLoadResult() {
	registered := r.Names()

	failed := make([]string, 0, len(r.Failures()))
	for name := range r.Failures() {
		failed = append(failed, name)
	}

	sort.Strings(failed)

	log := r.logger.WithFields(map[string]interface{}{
		"registered": registered,
		"failed":     failed,
	})

	if len(failed) > 0 {
		log.Warnf("schema registry loaded with %d failure(s)", len(failed))
	} else {
		log.Infof("schema registry loaded: %d schema(s)", len(registered))
	}
}

// Lookup returns the registered entry for a schema name
func (r *Registry) Lookup(name string) (*Registered, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]

	return entry, ok
}

// Names returns the sorted names of all registered schemas
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Failures returns a copy of the per-entry failure reasons from the load pass
func (r *Registry) Failures() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.failures))
	for name, reason := range r.failures {
		out[name] = reason
	}

	return out
}

// State returns the current lifecycle state
func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}
