// Package dnssec holds the small, non-cryptographic helpers the validation
// engine needs directly: keytag computation over raw DNSKEY rdata, DNSKEY
// field accessors and wildcard detection, and the pluggable
// algorithm/digest/NSEC3 registries. The engine invokes signature, digest,
// and hashing primitives only through those registries; the concrete
// standard-library verifiers in builtins.go are registered by callers.
package dnssec

import "github.com/dnsscience/dnssecoracle/internal/wire"

const (
	// DNSKEY rdata field offsets, per spec.md §3.
	dnskeyFlags     = 0
	dnskeyProtocol  = 2
	dnskeyAlgorithm = 3
	dnskeyPublicKey = 4

	// AlgorithmRSAMD5 is the legacy algorithm that uses a different keytag
	// formula (RFC 4034 Appendix B.1, special case).
	AlgorithmRSAMD5 = 1

	// ZoneKeyFlag is the DNSKEY flags bit (0x0100) that must be set for a
	// key to be usable as a zone signing key.
	ZoneKeyFlag = 0x0100

	// ProtocolValue is the only legal DNSKEY protocol octet.
	ProtocolValue = 3
)

// KeyTag computes the RFC 4034 Appendix B keytag of a DNSKEY's rdata.
//
// This follows the RFC's odd-length fold rather than the plain even-length
// sum some implementations use (an open question in the distillation this
// oracle is built from): when rdata has odd length, the final byte is
// folded in as the high byte of a trailing zero-padded word. RFC 4034
// correctness is chosen over bug-compatibility with an unspecified prior
// implementation, since no DNSKEY this oracle validates can arrive with an
// inconsistent keytag convention from two different callers.
func KeyTag(rdata []byte) uint16 {
	if len(rdata) < dnskeyPublicKey {
		return 0
	}
	if rdata[dnskeyAlgorithm] == AlgorithmRSAMD5 {
		return keyTagRSAMD5(rdata)
	}

	var ac uint32
	n := len(rdata)
	for i := 0; i < n; i++ {
		if i&1 == 0 {
			ac += uint32(rdata[i]) << 8
		} else {
			ac += uint32(rdata[i])
		}
	}
	ac += ac >> 16
	return uint16(ac & 0xFFFF)
}

// keyTagRSAMD5 implements the RFC 4034 Appendix B.1 special case: the
// keytag of an algorithm-1 key is the big-endian uint16 formed by the last
// two bytes of the public key material.
func keyTagRSAMD5(rdata []byte) uint16 {
	pub := rdata[dnskeyPublicKey:]
	if len(pub) < 2 {
		return 0
	}
	return uint16(pub[len(pub)-2])<<8 | uint16(pub[len(pub)-1])
}

// DNSKEYProtocol returns rdata's protocol octet.
func DNSKEYProtocol(rdata []byte) (byte, bool) {
	if len(rdata) <= dnskeyProtocol {
		return 0, false
	}
	return rdata[dnskeyProtocol], true
}

// DNSKEYAlgorithm returns rdata's algorithm octet.
func DNSKEYAlgorithm(rdata []byte) (byte, bool) {
	if len(rdata) <= dnskeyAlgorithm {
		return 0, false
	}
	return rdata[dnskeyAlgorithm], true
}

// DNSKEYIsZoneKey reports whether the zone-key flag bit (0x0100) is set.
func DNSKEYIsZoneKey(rdata []byte) (bool, bool) {
	if len(rdata) < dnskeyFlags+2 {
		return false, false
	}
	flags := uint16(rdata[dnskeyFlags])<<8 | uint16(rdata[dnskeyFlags+1])
	return flags&ZoneKeyFlag != 0, true
}

// IsWildcardName reports whether the wire-format name at offset begins
// with the two-byte wildcard label 0x01 0x2A ("*").
func IsWildcardName(r wire.Reader, offset int) (bool, error) {
	first, err := r.ReadU8(offset)
	if err != nil {
		return false, err
	}
	if first != 1 {
		return false, nil
	}
	second, err := r.ReadU8(offset + 1)
	if err != nil {
		return false, err
	}
	return second == '*', nil
}
