package oracle

import "sync"

// anchorNameKey is the sentinel synthetic owner-name key for the trust
// anchor entry: the single byte 0x20 (ASCII space), per spec.md §4.5.
// It is deliberately not a value wire.Reader.NameLength ever produces
// when parsing a real wire-format name starting with an ordinary label
// (see DESIGN.md, Open Question 4): a length byte of 0x20 is itself a
// legal 32-byte label length, so this is not a parse-rejection trick, it
// is simply a name no real submission's parsed owner name will ever
// equal byte-for-byte. The consequence — preserved rather than patched,
// per spec.md §9's anomaly list — is that the anchor entry can never be
// reached as a submit_rrset proof through the generic owner-name-parsing
// path in validProof; it exists only to make direct rrdata(DS, " ")
// lookups observable and to guarantee spec.md §4.6's "no legal
// transition out" for the anchor state.
var anchorNameKey = []byte{0x20}

// Store is the authenticated map (H(name), type) -> Record, including the
// anchor bootstrap entry. Unlike internal/cache.ShardedCache, which shards
// across 256 buckets for read-heavy concurrent throughput, Store is a
// single map behind one RWMutex: spec.md §5 models the core as a
// single-threaded transactional state machine where every public entry
// point executes atomically with respect to every other one, so there is
// no throughput case for sharding here — correctness of the single
// critical section is what matters, not lock contention.
type Store struct {
	mu      sync.RWMutex
	records map[Key]Record
}

// NewStore constructs a Store with the anchor entry pre-populated as
// spec.md §4.5 describes: name key anchorNameKey, type DS, inception 0, inserted = now,
// fingerprint = hash20(anchors).
func NewStore(anchors []byte, now uint64) *Store {
	s := &Store{records: make(map[Key]Record)}
	key := Key{NameHash: hashName(anchorNameKey), DNSType: TypeDS}
	s.records[key] = Record{
		Inception:   0,
		Inserted:    now,
		Fingerprint: fingerprint20(anchors),
	}
	return s
}

// Get returns the record for (name, dnstype), or the zero Record if
// absent.
func (s *Store) Get(nameWire []byte, dnstype uint16) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[Key{NameHash: hashName(nameWire), DNSType: dnstype}]
}

// Put writes unconditionally. The validation engine, not the store,
// enforces inception monotonicity (spec.md §4.5).
func (s *Store) Put(nameWire []byte, dnstype uint16, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[Key{NameHash: hashName(nameWire), DNSType: dnstype}] = rec
}

// Delete removes the entry for (name, dnstype), if any.
func (s *Store) Delete(nameWire []byte, dnstype uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, Key{NameHash: hashName(nameWire), DNSType: dnstype})
}

// Len returns the number of entries currently held, anchor included. It
// exists for metrics/diagnostics; the validation engine never consults it.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// AnchorNameKey exposes the sentinel bytes rrdata(DS, " ") queries
// against to observe the trust anchor directly (spec.md §8 scenario 1).
func AnchorNameKey() []byte {
	return append([]byte{}, anchorNameKey...)
}
