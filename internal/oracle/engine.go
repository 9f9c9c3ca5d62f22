package oracle

import (
	"bytes"
	"time"

	"github.com/dnsscience/dnssecoracle/internal/dnssec"
	"github.com/dnsscience/dnssecoracle/internal/eventbus"
	"github.com/dnsscience/dnssecoracle/internal/rrset"
	"github.com/dnsscience/dnssecoracle/internal/wire"
)

// RRSIG rdata fixed-field offsets (spec.md §3).
const (
	rrsigTypeCovered = 0
	rrsigAlgorithm   = 2
	rrsigLabels      = 3
	rrsigOrigTTL     = 4
	rrsigExpiration  = 8
	rrsigInception   = 12
	rrsigKeyTag      = 16
	rrsigSignerName  = 18
)

// Engine is the validation state machine described in spec.md §4.6: it
// ties the wire codec, RR iterator, keytag helper, registries, and store
// together behind submit_rrset / delete_rrset and their supporting
// verification chain. SubmitRRSet and DeleteRRSet run under a single
// engine-wide lock, so no two of them overlap. RRData and the
// SetAlgorithm/SetDigest/SetNSEC3Digest admin operations do not take that
// lock; they rely on Store's and Registry's own mutexes, so a registry
// update can take effect while a submission is being validated.
type Engine struct {
	mu       chan struct{} // binary semaphore; see lock()/unlock()
	store    *Store
	registry *dnssec.Registry
	bus      *eventbus.Bus
	acl      *AdminACL
	limiter  *SubmissionLimiter
	nowFn    func() uint64
	anchors  []byte
}

// Config configures a new Engine.
type Config struct {
	Anchors  []byte
	Registry *dnssec.Registry
	Bus      *eventbus.Bus
	ACL      *AdminACL
	Limiter  *SubmissionLimiter
	// Now overrides the wall-clock source; nil uses time.Now(). Tests
	// supply a fixed function to make inception/expiration checks
	// deterministic.
	Now func() uint64
}

// New constructs an Engine with the anchor entry bootstrapped into the
// store as spec.md §4.5 describes.
func New(cfg Config) *Engine {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = func() uint64 { return uint64(time.Now().Unix()) }
	}
	registry := cfg.Registry
	if registry == nil {
		registry = dnssec.NewRegistry(cfg.Bus)
	}
	acl := cfg.ACL
	if acl == nil {
		acl = NewAdminACL(false)
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewSubmissionLimiter(DefaultSubmissionLimiterConfig())
	}

	e := &Engine{
		mu:       make(chan struct{}, 1),
		store:    NewStore(cfg.Anchors, nowFn()),
		registry: registry,
		bus:      cfg.Bus,
		acl:      acl,
		limiter:  limiter,
		nowFn:    nowFn,
		anchors:  append([]byte{}, cfg.Anchors...),
	}
	e.mu <- struct{}{}
	return e
}

func (e *Engine) lock()   { <-e.mu }
func (e *Engine) unlock() { e.mu <- struct{}{} }

func (e *Engine) now32() uint32 { return uint32(e.nowFn()) }

// Anchors returns a read-only view of the installed trust anchor bytes
// (spec.md §6.2).
func (e *Engine) Anchors() []byte { return append([]byte{}, e.anchors...) }

// StoreSize reports the number of entries currently held in the
// authenticated store, anchor included, for metrics/diagnostics.
func (e *Engine) StoreSize() int { return e.store.Len() }

// SubmitRRSet implements spec.md §4.6 submit_rrset. identity is consulted
// only by the (ambient, non-core) submission rate limiter; submit_rrset
// itself stays permissionless per spec.md §6.2.
func (e *Engine) SubmitRRSet(identity string, input, sig, proof []byte) error {
	if !e.limiter.Allow(identity) {
		return fail(KindResourceExceeded, "submission rate exceeded", nil)
	}

	e.lock()
	defer e.unlock()

	name, rrs, err := e.validateSignedSet(input, sig, proof)
	if err != nil {
		return err
	}

	r := wire.NewReader(input)
	inception, err := r.ReadU32(rrsigInception)
	if err != nil {
		return fail(KindMalformedWire, "inception", err)
	}
	typeCovered, err := r.ReadU16(rrsigTypeCovered)
	if err != nil {
		return fail(KindMalformedWire, "type covered", err)
	}

	existing := e.store.Get(name, typeCovered)
	fp := fingerprint20(rrs)
	if !existing.IsZero() {
		if inception < existing.Inception {
			return fail(KindReplayRejected, "inception older than stored entry", nil)
		}
		if existing.Fingerprint == fp {
			return nil // idempotent no-op; no event emitted
		}
	}

	e.store.Put(name, typeCovered, Record{
		Inception:   inception,
		Inserted:    e.nowFn(),
		Fingerprint: fp,
	})
	publishRRSetUpdated(e.bus, name, rrs)
	return nil
}

// DeleteRRSet implements spec.md §4.6 delete_rrset.
func (e *Engine) DeleteRRSet(identity string, deleteType uint16, deleteName, nsec, sig, proof []byte) error {
	if !e.limiter.Allow(identity) {
		return fail(KindResourceExceeded, "deletion rate exceeded", nil)
	}

	e.lock()
	defer e.unlock()

	_, rrs, err := e.validateSignedSet(nsec, sig, proof)
	if err != nil {
		return err
	}

	nsecInception, err := wire.NewReader(nsec).ReadU32(rrsigInception)
	if err != nil {
		return fail(KindMalformedWire, "nsec inception", err)
	}

	existing := e.store.Get(deleteName, deleteType)
	if existing.Inception > nsecInception {
		return fail(KindReplayRejected, "stored entry newer than denial proof", nil)
	}

	// Only the first record of the denial RRSET is ever consulted; a
	// multi-record nsec argument has its remainder silently ignored.
	cursor := rrset.NewCursor(rrs, 0, -1)
	if cursor.Done() {
		return fail(KindUnrecognizedRecordType, "empty denial rrset", nil)
	}
	firstRR, _, err := cursor.Next()
	if err != nil {
		return fail(KindMalformedWire, "denial rrset first record", err)
	}

	deleteNameR := wire.NewReader(deleteName)
	switch firstRR.DNSType {
	case TypeNSEC:
		if err := checkNSECName(cursor.Reader(), firstRR, deleteNameR, 0, deleteType); err != nil {
			return err
		}
	case TypeNSEC3:
		if err := checkNSEC3Name(e.registry, cursor.Reader(), firstRR, deleteNameR, 0, deleteType); err != nil {
			return err
		}
	default:
		return fail(KindUnrecognizedRecordType, "denial rrset is neither NSEC nor NSEC3", nil)
	}

	e.store.Delete(deleteName, deleteType)
	return nil
}

// RRData implements spec.md §4.6 rrdata: a pure lookup.
func (e *Engine) RRData(dnstype uint16, name []byte) (uint32, uint64, [20]byte) {
	rec := e.store.Get(name, dnstype)
	return rec.Inception, rec.Inserted, rec.Fingerprint
}

// SetAlgorithm implements spec.md §6.1 set_algorithm: privileged.
func (e *Engine) SetAlgorithm(identity string, id uint8, v dnssec.Algorithm) error {
	if !e.acl.IsAllowed(identity) {
		return fail(KindUnauthorized, "set_algorithm", nil)
	}
	e.registry.SetAlgorithm(id, v, identity)
	return nil
}

// SetDigest implements spec.md §6.1 set_digest: privileged.
func (e *Engine) SetDigest(identity string, id uint8, v dnssec.Digest) error {
	if !e.acl.IsAllowed(identity) {
		return fail(KindUnauthorized, "set_digest", nil)
	}
	e.registry.SetDigest(id, v, identity)
	return nil
}

// SetNSEC3Digest implements spec.md §6.1 set_nsec3_digest: privileged.
func (e *Engine) SetNSEC3Digest(identity string, id uint8, v dnssec.NSEC3Digest) error {
	if !e.acl.IsAllowed(identity) {
		return fail(KindUnauthorized, "set_nsec3_digest", nil)
	}
	e.registry.SetNSEC3Digest(id, v, identity)
	return nil
}

// validateSignedSet implements spec.md §4.6 validate_signed_set.
func (e *Engine) validateSignedSet(input, sig, proof []byte) (name, rrs []byte, err error) {
	r := wire.NewReader(input)

	signerNameLen, err := r.NameLength(rrsigSignerName)
	if err != nil {
		return nil, nil, fail(KindMalformedWire, "rrsig signer name", err)
	}

	if err := e.validProof(proof); err != nil {
		return nil, nil, err
	}

	expiration, err := r.ReadU32(rrsigExpiration)
	if err != nil {
		return nil, nil, fail(KindMalformedWire, "expiration", err)
	}
	inception, err := r.ReadU32(rrsigInception)
	if err != nil {
		return nil, nil, fail(KindMalformedWire, "inception", err)
	}
	typeCovered, err := r.ReadU16(rrsigTypeCovered)
	if err != nil {
		return nil, nil, fail(KindMalformedWire, "type covered", err)
	}
	labels, err := r.ReadU8(rrsigLabels)
	if err != nil {
		return nil, nil, fail(KindMalformedWire, "labels", err)
	}

	rrsStart := rrsigSignerName + signerNameLen
	if rrsStart > len(input) {
		return nil, nil, fail(KindMalformedWire, "rrs region out of bounds", nil)
	}
	rrs = input[rrsStart:]

	name, err = e.validateRRs(rrs, typeCovered)
	if err != nil {
		return nil, nil, err
	}

	if err := checkNameLabels(name, labels); err != nil {
		return nil, nil, err
	}

	if err := e.verifySignature(name, input, sig, proof); err != nil {
		return nil, nil, err
	}

	// Plain uint32 comparison against now; RFC 1982 serial-number
	// arithmetic is not applied.
	now := e.now32()
	if !(expiration > now && inception < now) {
		return nil, nil, fail(KindTimeWindow, "outside validity window", nil)
	}

	return name, rrs, nil
}

// validProof implements the valid_proof check embedded in
// validate_signed_set step 2: the proof's own owner name and record type
// must match a stored trusted entry whose fingerprint equals hash20(proof).
func (e *Engine) validProof(proof []byte) error {
	pr := wire.NewReader(proof)
	nameLen, err := pr.NameLength(0)
	if err != nil {
		return fail(KindMalformedWire, "proof owner name", err)
	}
	name, err := pr.Substring(0, nameLen)
	if err != nil {
		return fail(KindMalformedWire, "proof owner name bytes", err)
	}
	dnstype, err := pr.ReadU16(nameLen)
	if err != nil {
		return fail(KindMalformedWire, "proof record type", err)
	}

	stored := e.store.Get(name, dnstype)
	if stored.IsZero() {
		return fail(KindNoTrust, "proof not found in store", nil)
	}
	if stored.Fingerprint != fingerprint20(proof) {
		return fail(KindNoTrust, "proof fingerprint mismatch", nil)
	}
	return nil
}

// validateRRs implements spec.md §4.6 validate_rrs.
func (e *Engine) validateRRs(rrs []byte, typeCovered uint16) ([]byte, error) {
	cursor := rrset.NewCursor(rrs, 0, -1)
	var name []byte
	first := true

	for !cursor.Done() {
		rr, next, err := cursor.Next()
		if err != nil {
			return nil, fail(KindMalformedWire, "rrset record", err)
		}
		if rr.Class != ClassIN {
			return nil, fail(KindUnsupportedClass, "rrset record class", nil)
		}
		if rr.DNSType != typeCovered {
			return nil, fail(KindTypeMismatch, "rrset record type", nil)
		}
		owner, err := wireNameBytes(cursor.Reader(), rr.NameOffset)
		if err != nil {
			return nil, fail(KindMalformedWire, "rrset owner name", err)
		}
		if first {
			name = owner
			first = false
		} else if !bytes.Equal(name, owner) {
			return nil, fail(KindNameMismatch, "rrset owner names disagree", nil)
		}
		cursor = next
	}

	if first {
		// Empty RRSET: validate_rrs returns an empty name (spec.md §8).
		return []byte{}, nil
	}
	return name, nil
}

// checkNameLabels implements spec.md §4.6 check_name_labels.
func checkNameLabels(name []byte, labels uint8) error {
	var count int
	if len(name) > 0 {
		var err error
		count, err = wire.NewReader(name).LabelCount(0)
		if err != nil {
			return fail(KindMalformedWire, "name label count", err)
		}
	}
	if count == int(labels) {
		return nil
	}
	if len(name) >= 2 && name[0] == 0x01 && name[1] == '*' && count == int(labels)+1 {
		return nil
	}
	return fail(KindNameMismatch, "label count disagreement", nil)
}

// verifySignature implements spec.md §4.6 verify_signature.
func (e *Engine) verifySignature(name, data, sig, proof []byte) error {
	r := wire.NewReader(data)
	signerNameLen, err := r.NameLength(rrsigSignerName)
	if err != nil {
		return fail(KindMalformedWire, "signer name", err)
	}
	signerName, err := r.Substring(rrsigSignerName, signerNameLen)
	if err != nil {
		return fail(KindMalformedWire, "signer name bytes", err)
	}
	if len(signerName) > len(name) || !bytes.Equal(name[len(name)-len(signerName):], signerName) {
		return fail(KindNameMismatch, "signer name not a suffix of owner name", nil)
	}

	pr := wire.NewReader(proof)
	proofNameLen, err := pr.NameLength(0)
	if err != nil {
		return fail(KindMalformedWire, "proof owner name", err)
	}
	proofType, err := pr.ReadU16(proofNameLen)
	if err != nil {
		return fail(KindMalformedWire, "proof record type", err)
	}

	var ok bool
	switch proofType {
	case TypeDS:
		rrsStart := rrsigSignerName + signerNameLen
		ok, err = e.verifyWithDS(data, sig, rrsStart, proof)
	case TypeDNSKEY:
		ok, err = e.verifyWithKnownKey(data, sig, proof, signerName)
	default:
		return fail(KindUnsupportedProofType, "proof is neither DNSKEY nor DS", nil)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fail(KindSignatureFailed, "no candidate key validated the signature", nil)
	}
	return nil
}

// verifyWithKnownKey implements spec.md §4.6 verify_with_known_key.
func (e *Engine) verifyWithKnownKey(data, sig, proof, signerName []byte) (bool, error) {
	alg, err := wire.NewReader(data).ReadU8(rrsigAlgorithm)
	if err != nil {
		return false, fail(KindMalformedWire, "algorithm", err)
	}
	keytag, err := wire.NewReader(data).ReadU16(rrsigKeyTag)
	if err != nil {
		return false, fail(KindMalformedWire, "keytag", err)
	}

	cursor := rrset.NewCursor(proof, 0, -1)
	for !cursor.Done() {
		rr, next, err := cursor.Next()
		if err != nil {
			return false, fail(KindMalformedWire, "proof record", err)
		}
		if rr.DNSType == TypeDNSKEY {
			owner, err := wireNameBytes(cursor.Reader(), rr.NameOffset)
			if err == nil && bytes.Equal(owner, signerName) {
				rdata, err := rr.RData(cursor.Reader())
				if err == nil && e.verifySignatureWithKey(rdata, alg, keytag, data, sig) {
					return true, nil
				}
			}
		}
		cursor = next
	}
	return false, nil
}

// verifyWithDS implements spec.md §4.6 verify_with_ds.
func (e *Engine) verifyWithDS(data, sig []byte, offset int, proof []byte) (bool, error) {
	alg, err := wire.NewReader(data).ReadU8(rrsigAlgorithm)
	if err != nil {
		return false, fail(KindMalformedWire, "algorithm", err)
	}
	keytag, err := wire.NewReader(data).ReadU16(rrsigKeyTag)
	if err != nil {
		return false, fail(KindMalformedWire, "keytag", err)
	}

	cursor := rrset.NewCursor(data, offset, -1)
	for !cursor.Done() {
		rr, next, err := cursor.Next()
		if err != nil {
			return false, fail(KindMalformedWire, "covered record", err)
		}
		if rr.DNSType != TypeDNSKEY {
			return false, nil
		}
		rdata, err := rr.RData(cursor.Reader())
		if err != nil {
			return false, fail(KindMalformedWire, "covered record rdata", err)
		}
		if e.verifySignatureWithKey(rdata, alg, keytag, data, sig) {
			dnskeyName, err := wireNameBytes(cursor.Reader(), rr.NameOffset)
			if err != nil {
				return false, fail(KindMalformedWire, "covered record owner name", err)
			}
			ok, err := e.verifyKeyWithDS(dnskeyName, rdata, keytag, alg, proof)
			if err != nil {
				return false, err
			}
			return ok, nil
		}
		cursor = next
	}
	return false, nil
}

// verifySignatureWithKey implements spec.md §4.6 verify_signature_with_key.
func (e *Engine) verifySignatureWithKey(keyRdata []byte, alg uint8, keytag uint16, data, sig []byte) bool {
	algo := e.registry.Algorithm(alg)
	if algo == nil {
		return false
	}
	proto, ok := dnssec.DNSKEYProtocol(keyRdata)
	if !ok || proto != dnssec.ProtocolValue {
		return false
	}
	keyAlg, ok := dnssec.DNSKEYAlgorithm(keyRdata)
	if !ok || keyAlg != alg {
		return false
	}
	if dnssec.KeyTag(keyRdata) != keytag {
		return false
	}
	isZoneKey, ok := dnssec.DNSKEYIsZoneKey(keyRdata)
	if !ok || !isZoneKey {
		return false
	}
	return algo.Verify(keyRdata, data, sig)
}

// verifyKeyWithDS implements spec.md §4.6 verify_key_with_ds.
func (e *Engine) verifyKeyWithDS(keyname, keyRdata []byte, keytag uint16, alg uint8, dsRRset []byte) (bool, error) {
	cursor := rrset.NewCursor(dsRRset, 0, -1)
	for !cursor.Done() {
		rr, next, err := cursor.Next()
		if err != nil {
			return false, fail(KindMalformedWire, "ds record", err)
		}
		rdata, err := rr.RData(cursor.Reader())
		if err != nil {
			return false, fail(KindMalformedWire, "ds record rdata", err)
		}
		cursor = next
		if len(rdata) < 4 {
			continue
		}
		dsKeytag := uint16(rdata[0])<<8 | uint16(rdata[1])
		dsAlg := rdata[2]
		if dsKeytag != keytag || dsAlg != alg {
			continue
		}
		digestType := rdata[3]
		digest := e.registry.Digest(digestType)
		if digest == nil {
			continue
		}
		material := append(append([]byte{}, keyname...), keyRdata...)
		if digest.Verify(material, rdata[4:]) {
			return true, nil
		}
	}
	return false, fail(KindDSMismatch, "no matching DS record validated the key", nil)
}
