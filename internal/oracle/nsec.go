package oracle

import (
	"github.com/dnsscience/dnssecoracle/internal/dnssec"
	"github.com/dnsscience/dnssecoracle/internal/rrset"
	"github.com/dnsscience/dnssecoracle/internal/wire"
)

// compareWords does an unsigned big-endian lexicographic compare of two
// 32-byte words (spec.md §4.6: "all hash comparisons are unsigned
// big-endian 32-byte lex compare").
func compareWords(a, b [32]byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// checkNSECName implements spec.md §4.6 check_nsec_name: validates that an
// NSEC record proves the non-existence of deleteType at the name located
// at (deleteNameR, deleteNameOffset).
func checkNSECName(nsecR wire.Reader, rr rrset.RR, deleteNameR wire.Reader, deleteNameOffset int, deleteType uint16) error {
	rdataOffset := rr.RDOffset
	nextNameLength, err := nsecR.NameLength(rdataOffset)
	if err != nil {
		return fail(KindMalformedWire, "nsec next-name", err)
	}
	if rr.RDLength <= nextNameLength {
		return fail(KindMalformedWire, "nsec rdata has no type bitmap after next name", nil)
	}

	cmp, err := wire.CompareNames(deleteNameR, deleteNameOffset, nsecR, rr.NameOffset)
	if err != nil {
		return fail(KindMalformedWire, "compare delete_name to nsec_name", err)
	}

	if cmp == 0 {
		bitmapOffset := rdataOffset + nextNameLength
		rdataEnd := rr.RDOffset + rr.RDLength
		has, err := nsecR.CheckTypeBitmap(bitmapOffset, rdataEnd, deleteType)
		if err != nil {
			return fail(KindMalformedWire, "nsec type bitmap", err)
		}
		if has {
			return fail(KindDenialProofFailed, "nsec owner covers delete_type", nil)
		}
		return nil
	}

	nextNameOffset := rdataOffset
	nsecVsNext, err := wire.CompareNames(nsecR, rr.NameOffset, nsecR, nextNameOffset)
	if err != nil {
		return fail(KindMalformedWire, "compare nsec_name to next_name", err)
	}

	if nsecVsNext < 0 {
		// Normal interval.
		deleteVsNext, err := wire.CompareNames(deleteNameR, deleteNameOffset, nsecR, nextNameOffset)
		if err != nil {
			return fail(KindMalformedWire, "compare delete_name to next_name", err)
		}
		if !(cmp > 0 && deleteVsNext < 0) {
			return fail(KindDenialProofFailed, "delete_name outside nsec interval", nil)
		}
		return nil
	}

	// Wrap-around interval: next_name is the zone apex.
	if cmp <= 0 {
		return fail(KindDenialProofFailed, "delete_name outside wrapped nsec interval", nil)
	}
	return nil
}

// checkNSEC3Name implements spec.md §4.6 check_nsec3_name: validates that
// an NSEC3 record proves the non-existence of deleteType at the name
// located at (deleteNameR, deleteNameOffset), using reg to look up the
// hash algorithm the record specifies.
func checkNSEC3Name(reg *dnssec.Registry, nsecR wire.Reader, rr rrset.RR, deleteNameR wire.Reader, deleteNameOffset int, deleteType uint16) error {
	r := rr.RDOffset

	hashAlg, err := nsecR.ReadU8(r)
	if err != nil {
		return fail(KindMalformedWire, "nsec3 hash alg", err)
	}
	iterations, err := nsecR.ReadU16(r + 2)
	if err != nil {
		return fail(KindMalformedWire, "nsec3 iterations", err)
	}
	saltLength, err := nsecR.ReadU8(r + 4)
	if err != nil {
		return fail(KindMalformedWire, "nsec3 salt length", err)
	}
	salt, err := nsecR.Substring(r+5, int(saltLength))
	if err != nil {
		return fail(KindMalformedWire, "nsec3 salt", err)
	}

	digest := reg.NSEC3Digest(hashAlg)
	if digest == nil {
		return fail(KindDenialProofFailed, "no nsec3 digest registered", nil)
	}
	deleteNameWire, err := wireNameBytes(deleteNameR, deleteNameOffset)
	if err != nil {
		return fail(KindMalformedWire, "delete_name bytes", err)
	}
	deleteHash := digest.Hash(salt, deleteNameWire, iterations)

	nextLenOffset := r + 5 + int(saltLength)
	nextLength, err := nsecR.ReadU8(nextLenOffset)
	if err != nil {
		return fail(KindMalformedWire, "nsec3 next-hash length", err)
	}
	if nextLength > 32 {
		return fail(KindMalformedWire, "nsec3 next-hash length exceeds 32", nil)
	}
	nextHash, err := nsecR.ReadBytesN(nextLenOffset+1, int(nextLength))
	if err != nil {
		return fail(KindMalformedWire, "nsec3 next-hash", err)
	}

	nsecFirstLabelLen, err := nsecR.ReadU8(rr.NameOffset)
	if err != nil {
		return fail(KindMalformedWire, "nsec3 owner first label length", err)
	}
	nsecHash, err := nsecR.Base32HexDecodeWord(rr.NameOffset+1, int(nsecFirstLabelLen))
	if err != nil {
		return fail(KindMalformedWire, "nsec3 owner hashed label", err)
	}

	switch {
	case compareWords(deleteHash, nsecHash) == 0:
		bitmapOffset := nextLenOffset + 1 + int(nextLength)
		rdataEnd := rr.RDOffset + rr.RDLength
		has, err := nsecR.CheckTypeBitmap(bitmapOffset, rdataEnd, deleteType)
		if err != nil {
			return fail(KindMalformedWire, "nsec3 type bitmap", err)
		}
		if has {
			return fail(KindDenialProofFailed, "nsec3 owner covers delete_type", nil)
		}
		return nil
	case compareWords(nextHash, nsecHash) > 0:
		// Normal interval.
		if compareWords(deleteHash, nsecHash) > 0 && compareWords(deleteHash, nextHash) < 0 {
			return nil
		}
		return fail(KindDenialProofFailed, "delete_hash outside nsec3 interval", nil)
	default:
		// Wrap-around interval.
		if compareWords(deleteHash, nsecHash) > 0 {
			return nil
		}
		return fail(KindDenialProofFailed, "delete_hash outside wrapped nsec3 interval", nil)
	}
}

// wireNameBytes returns the raw wire-format bytes of the name at offset.
func wireNameBytes(r wire.Reader, offset int) ([]byte, error) {
	n, err := r.NameLength(offset)
	if err != nil {
		return nil, err
	}
	return r.Substring(offset, n)
}
