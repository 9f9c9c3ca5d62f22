package dnssec

import (
	"context"
	"sync"

	"github.com/dnsscience/dnssecoracle/internal/eventbus"
)

// Algorithm verifies a DNSSEC signature over data using the public key
// material in keyRdata. Implementations are supplied externally: the core
// never inlines cryptography (spec.md §4.4/§9).
type Algorithm interface {
	Verify(keyRdata, data, sig []byte) bool
}

// Digest verifies that the digest of data equals expected (used for DS
// digest checking).
type Digest interface {
	Verify(data, expected []byte) bool
}

// NSEC3Digest computes the RFC 5155 iterated hashed-owner-name value for
// nameWire using salt and the given iteration count.
type NSEC3Digest interface {
	Hash(salt, nameWire []byte, iterations uint16) [32]byte
}

// AlgorithmUpdated is emitted on a successful SetAlgorithm call.
type AlgorithmUpdated struct {
	ID       uint8
	Identity string
}

// DigestUpdated is emitted on a successful SetDigest call.
type DigestUpdated struct {
	ID       uint8
	Identity string
}

// NSEC3DigestUpdated is emitted on a successful SetNSEC3Digest call.
type NSEC3DigestUpdated struct {
	ID       uint8
	Identity string
}

// Registry holds the three independent algorithm/digest/NSEC3-hash
// indirection tables the validation engine consults. Each mapping may only
// be mutated by the controlling admin; lookups are unrestricted. Modeled
// on internal/engine.ACL's mutex-guarded map style, generalized to three
// maps instead of an allow/deny pair.
type Registry struct {
	mu           sync.RWMutex
	algorithms   map[uint8]Algorithm
	digests      map[uint8]Digest
	nsec3Digests map[uint8]NSEC3Digest

	bus *eventbus.Bus
}

// NewRegistry constructs an empty Registry. bus may be nil, in which case
// mutations are silent (useful for tests that don't care about events).
func NewRegistry(bus *eventbus.Bus) *Registry {
	return &Registry{
		algorithms:   make(map[uint8]Algorithm),
		digests:      make(map[uint8]Digest),
		nsec3Digests: make(map[uint8]NSEC3Digest),
		bus:          bus,
	}
}

// SetAlgorithm installs or replaces the verifier for algorithm id. Callers
// are responsible for the admin authorization check; the registry itself
// performs no access control (spec.md §5: "orthogonal to the validation
// logic").
func (r *Registry) SetAlgorithm(id uint8, v Algorithm, identity string) {
	r.mu.Lock()
	r.algorithms[id] = v
	r.mu.Unlock()
	r.publish(AlgorithmUpdated{ID: id, Identity: identity})
}

// SetDigest installs or replaces the verifier for digest type id.
func (r *Registry) SetDigest(id uint8, v Digest, identity string) {
	r.mu.Lock()
	r.digests[id] = v
	r.mu.Unlock()
	r.publish(DigestUpdated{ID: id, Identity: identity})
}

// SetNSEC3Digest installs or replaces the NSEC3 hash function for id.
func (r *Registry) SetNSEC3Digest(id uint8, v NSEC3Digest, identity string) {
	r.mu.Lock()
	r.nsec3Digests[id] = v
	r.mu.Unlock()
	r.publish(NSEC3DigestUpdated{ID: id, Identity: identity})
}

// Algorithm returns the registered verifier for id, or nil if none is
// registered. A missing registration is not itself an error; the caller
// treats it as an unconditional verification failure (spec.md §4.4).
func (r *Registry) Algorithm(id uint8) Algorithm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.algorithms[id]
}

// Digest returns the registered digest verifier for id, or nil.
func (r *Registry) Digest(id uint8) Digest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.digests[id]
}

// NSEC3Digest returns the registered NSEC3 hash function for id, or nil.
func (r *Registry) NSEC3Digest(id uint8) NSEC3Digest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nsec3Digests[id]
}

func (r *Registry) publish(data interface{}) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(context.Background(), eventbus.TopicOracle, data)
}
