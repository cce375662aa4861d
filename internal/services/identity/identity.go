// Package identity maps the opaque handles the OS hands out for selected apps
// onto stable logical identities.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
)

// ErrUnresolvable is returned for entities with neither a handle nor a
// bundle identifier.
var ErrUnresolvable = errors.New("identity: entity has no handle or bundle id")

const (
	handleKeyPrefix = "identity.handle."
	bundleKeyPrefix = "identity.bundle."
)

// Bindings persists which logical ID a handle or bundle identifier resolved
// to first. *db.DB implements it.
type Bindings interface {
	GetState(key string) (string, bool, error)
	SetState(key, value string) error
}

// Resolver assigns logical IDs and remembers them. Once a handle or bundle
// identifier is bound to an ID it keeps resolving to that ID, so learning an
// entity's bundle later, or reinstalling it under a new handle, does not
// split its history.
type Resolver struct {
	mu    sync.Mutex
	store Bindings
	known map[string]string
}

// NewResolver creates a resolver. A nil store keeps bindings in memory only.
func NewResolver(store Bindings) *Resolver {
	return &Resolver{store: store, known: make(map[string]string)}
}

// Resolve fills LogicalID and LookupHash on a copy of e. An entity that
// already carries a logical ID keeps it.
func (r *Resolver) Resolve(e models.TrackedEntity) (models.TrackedEntity, error) {
	handle := strings.TrimSpace(e.Handle)
	bundle := strings.ToLower(strings.TrimSpace(e.BundleID))

	if handle == "" && bundle == "" && e.LogicalID == "" {
		return e, ErrUnresolvable
	}

	var handleKey, bundleKey string
	if handle != "" {
		e.LookupHash = digest("handle:" + handle)[:16]
		handleKey = handleKeyPrefix + e.LookupHash
	}
	if bundle != "" {
		bundleKey = bundleKeyPrefix + bundle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.LogicalID == "" {
		if id, ok := r.lookup(handleKey); ok {
			e.LogicalID = id
		} else if id, ok := r.lookup(bundleKey); ok {
			e.LogicalID = id
		} else if handle != "" {
			e.LogicalID = "ent_" + digest("handle:" + handle)[:16]
		} else {
			e.LogicalID = "ent_" + digest("bundle:" + bundle)[:16]
		}
	}

	r.bind(handleKey, e.LogicalID)
	r.bind(bundleKey, e.LogicalID)
	return e, nil
}

// ResolveAll resolves every entity, returning the resolved ones and the
// ones that could not be resolved.
func (r *Resolver) ResolveAll(entities []models.TrackedEntity) (resolved, unresolved []models.TrackedEntity) {
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		res, err := r.Resolve(e)
		if err != nil {
			unresolved = append(unresolved, e)
			continue
		}
		if seen[res.LogicalID] {
			continue
		}
		seen[res.LogicalID] = true
		resolved = append(resolved, res)
	}
	return resolved, unresolved
}

func (r *Resolver) lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if id, ok := r.known[key]; ok {
		return id, true
	}
	if r.store == nil {
		return "", false
	}
	id, ok, err := r.store.GetState(key)
	if err != nil {
		logger.Warn("failed to read identity binding", "key", key, "error", err)
		return "", false
	}
	if !ok || id == "" {
		return "", false
	}
	r.known[key] = id
	return id, true
}

// bind records key -> id unless key is already bound.
func (r *Resolver) bind(key, id string) {
	if key == "" {
		return
	}
	if _, ok := r.lookup(key); ok {
		return
	}
	r.known[key] = id
	if r.store == nil {
		return
	}
	if err := r.store.SetState(key, id); err != nil {
		logger.Warn("failed to persist identity binding", "key", key, "error", err)
	}
}

// Resolve resolves one entity without any remembered bindings.
func Resolve(e models.TrackedEntity) (models.TrackedEntity, error) {
	return NewResolver(nil).Resolve(e)
}

// ResolveAll resolves a list with bindings shared only within the call.
func ResolveAll(entities []models.TrackedEntity) (resolved, unresolved []models.TrackedEntity) {
	return NewResolver(nil).ResolveAll(entities)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
