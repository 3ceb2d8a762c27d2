// Package registry maps endpoint identity to endpoint objects, creates
// mocks on demand, and answers label-set and token-reverse-lookup
// queries over the live endpoint set.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nugget/serial-keel/internal/endpoint"
)

// Errors returned by Registry methods. These are sentinel-typed so
// controlcenter can translate them into the wire error taxonomy.
type NoSuchEndpointError struct{ ID endpoint.ID }

func (e *NoSuchEndpointError) Error() string {
	return fmt.Sprintf("the endpoint %q does not exist", e.ID)
}

// Registry owns the live set of endpoints. It is not safe for concurrent
// mutation by multiple goroutines in general, but the control center is
// architected as a single-writer actor (spec §5) so in practice only one
// goroutine ever calls the mutating methods; the mutex below exists only
// to protect reads performed by endpoint I/O goroutines concurrently with
// that single writer.
type Registry struct {
	mu         sync.RWMutex
	byID       map[endpoint.ID]endpoint.Endpoint
	shareMocks bool
	log        *slog.Logger
}

// New creates an empty Registry. When shareMocks is true, mock ids are
// considered equal across users with the same name (see
// Registry.normalize); the default (false) scopes mocks per-user.
func New(shareMocks bool, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		byID:       make(map[endpoint.ID]endpoint.Endpoint),
		shareMocks: shareMocks,
		log:        log,
	}
}

// normalize applies the mock sharing policy: when mocks are shared, the
// owning user is irrelevant to identity, so it is zeroed before the id is
// used as a map key.
func (r *Registry) normalize(id endpoint.ID) endpoint.ID {
	if r.shareMocks && id.Kind == endpoint.KindMock {
		id.MockOwner = ""
	}
	return id
}

// Insert adds a new endpoint. Panics on id collision: an attempt to
// insert the same endpoint id twice is a bug in the caller, not a
// recoverable runtime condition (mirrors the original's `assert!` on
// insertion).
func (r *Registry) Insert(e endpoint.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.normalize(e.ID())
	if _, exists := r.byID[key]; exists {
		panic(fmt.Sprintf("registry: duplicate endpoint id %q", e.ID()))
	}
	r.byID[key] = e
	r.log.Debug("endpoint added", "endpoint", e.ID().String(), "labels", e.Labels())
}

// MockFactory builds a new mock endpoint for an id not yet known to the
// registry. Injected so Registry stays independent of any particular
// logger/construction detail.
type MockFactory func(id endpoint.ID) endpoint.Endpoint

// GetOrCreateMock idempotently returns the mock endpoint for id, building
// it via factory on first reference.
func (r *Registry) GetOrCreateMock(id endpoint.ID, factory MockFactory) endpoint.Endpoint {
	key := r.normalize(id)

	r.mu.RLock()
	if e, ok := r.byID[key]; ok {
		r.mu.RUnlock()
		return e
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[key]; ok {
		return e
	}
	e := factory(id)
	r.byID[key] = e
	r.log.Debug("mock endpoint created", "endpoint", id.String())
	return e
}

// Get returns the endpoint for id, or NoSuchEndpointError.
func (r *Registry) Get(id endpoint.ID) (endpoint.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[r.normalize(id)]
	if !ok {
		return nil, &NoSuchEndpointError{ID: id}
	}
	return e, nil
}

// InfoFor resolves id to its current Info (id + live labels).
func (r *Registry) InfoFor(id endpoint.ID) (endpoint.Info, error) {
	e, err := r.Get(id)
	if err != nil {
		return endpoint.Info{}, err
	}
	return endpoint.Info{ID: e.ID(), Labels: e.Labels()}, nil
}

// EndpointsForToken returns every endpoint sharing the given token id —
// the "bundle" a controller grants access to.
func (r *Registry) EndpointsForToken(tokenID uuid.UUID) []endpoint.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []endpoint.Info
	for _, e := range r.byID {
		if e.Token().ID == tokenID {
			out = append(out, endpoint.Info{ID: e.ID(), Labels: e.Labels()})
		}
	}
	return out
}

// MatchLabels returns every endpoint whose labels are a superset of query,
// deduplicated by token id (controlling one endpoint in a group implies
// controlling the rest, so there is no point queueing twice on the same
// token). query must be non-empty; an empty query is rejected by the
// caller (controlcenter), not here, since "bad usage" is a control-center
// concern, not a registry one.
func (r *Registry) MatchLabels(query endpoint.Labels) []endpoint.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seenTokens := make(map[uuid.UUID]struct{})
	var out []endpoint.Info
	for _, e := range r.byID {
		if !e.Labels().IsSupersetOf(query) {
			continue
		}
		tokID := e.Token().ID
		if _, ok := seenTokens[tokID]; ok {
			continue
		}
		seenTokens[tokID] = struct{}{}
		out = append(out, endpoint.Info{ID: e.ID(), Labels: e.Labels()})
	}
	return out
}

// Unlabelled returns every endpoint with no labels — GC candidates.
func (r *Registry) Unlabelled() []endpoint.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []endpoint.Info
	for _, e := range r.byID {
		if len(e.Labels()) == 0 {
			out = append(out, endpoint.Info{ID: e.ID(), Labels: e.Labels()})
		}
	}
	return out
}

// Remove deletes an entry.
func (r *Registry) Remove(id endpoint.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.normalize(id)
	delete(r.byID, key)
	r.log.Debug("endpoint removed", "endpoint", id.String())
}
