package oracle

import (
	"crypto/sha1"
	"crypto/sha256"
)

// hashName computes the store key's name component: a collision-resistant
// hash of the exact wire bytes of a name. There is no third-party
// cryptographic hash library anywhere in this module's dependency graph —
// the pack's only keyed/fast hash functions (siphash, fnv, xxhash) are used
// exclusively for non-cryptographic bucketing elsewhere in the corpus
// (internal/cookie, internal/packet.HashQuery), never as a security
// boundary. crypto/sha256 is the standard library's own answer to "a
// collision-resistant hash of an exact byte string" and needs no
// third-party replacement.
func hashName(nameWire []byte) [32]byte {
	return sha256.Sum256(nameWire)
}

// fingerprint20 computes the store record's 20-byte fingerprint over the
// canonical RR bytes a signature covered (spec.md §3: "a collision
// -resistant hash, truncated, of the canonical RR bytes"). SHA-1 is chosen
// over truncating a wider hash because it already produces exactly 20
// bytes with no truncation step to get subtly wrong, and is grounded in
// the corpus's own precedent (ahjohannessen-skydns2's sigCache keys
// reference RRs by sha1 of their serialized bytes) — the only DNSSEC
// -adjacent example in the pack that hashes RR bytes for a content
// -identifier role rather than a security-boundary signature.
func fingerprint20(rrs []byte) [20]byte {
	return sha1.Sum(rrs)
}
