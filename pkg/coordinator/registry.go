package coordinator

import (
	"fmt"
	"sort"

	"github.com/StrathCole/price-attest/pkg/aggregator"
	"github.com/StrathCole/price-attest/pkg/signer"
)

// Registry maps worker ids to public keys. It is read-only once built and
// safe for concurrent use without locking.
type Registry struct {
	keys map[int]signer.PublicKey
}

var _ aggregator.Registry = (*Registry)(nil)

// NewRegistry returns a registry holding a copy of keys.
func NewRegistry(keys map[int]signer.PublicKey) *Registry {
	cp := make(map[int]signer.PublicKey, len(keys))
	for id, pub := range keys {
		cp[id] = pub
	}
	return &Registry{keys: cp}
}

// PublicKey returns the key registered for workerID.
func (r *Registry) PublicKey(workerID int) (signer.PublicKey, bool) {
	pub, ok := r.keys[workerID]
	return pub, ok
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	return len(r.keys)
}

// IDs returns the registered worker ids in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.keys))
	for id := range r.keys {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// RegistryBuilder collects keys before the registry is frozen.
type RegistryBuilder struct {
	keys map[int]signer.PublicKey
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{keys: make(map[int]signer.PublicKey)}
}

// Add registers pub for workerID.
func (b *RegistryBuilder) Add(workerID int, pub signer.PublicKey) error {
	if _, exists := b.keys[workerID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateWorker, workerID)
	}
	b.keys[workerID] = pub
	return nil
}

// Build freezes the collected keys into a Registry.
func (b *RegistryBuilder) Build() *Registry {
	return NewRegistry(b.keys)
}
