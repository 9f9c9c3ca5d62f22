package oracle

import (
	"testing"

	"github.com/dnsscience/dnssecoracle/internal/dnssec"
	"github.com/dnsscience/dnssecoracle/internal/rrset"
	"github.com/dnsscience/dnssecoracle/internal/wire"
)

func wireNameBuf(labels ...string) []byte {
	var out []byte
	for _, l := range labels {
		out = append(out, byte(len(l)))
		out = append(out, l...)
	}
	return append(out, 0x00)
}

// buildNSECRR constructs a full RR buffer: owner name, TYPE=NSEC, class IN,
// ttl, rdata = nextName + bitmap.
func buildNSECRR(owner, nextName []byte, bitmap []byte) ([]byte, rrset.RR) {
	rdata := append(append([]byte{}, nextName...), bitmap...)
	buf := append([]byte{}, owner...)
	buf = append(buf, byte(TypeNSEC>>8), byte(TypeNSEC))
	buf = append(buf, 0, 1) // class IN
	buf = append(buf, 0, 0, 0x0E, 0x10)
	buf = append(buf, byte(len(rdata)>>8), byte(len(rdata)))
	rdOffset := len(buf)
	buf = append(buf, rdata...)
	rr := rrset.RR{
		NameOffset: 0,
		DNSType:    TypeNSEC,
		Class:      ClassIN,
		RDOffset:   rdOffset,
		RDLength:   len(rdata),
		NextOffset: len(buf),
	}
	return buf, rr
}

func emptyTypeBitmapWithout(dnstype uint16) []byte {
	window := byte(dnstype >> 8)
	bit := byte(dnstype & 0xFF)
	length := bit/8 + 1
	bits := make([]byte, length)
	// Leave all bits zero: dnstype absent. Set an unrelated bit present so
	// the bitmap isn't degenerate.
	if length > 1 {
		bits[0] = 0x80
	}
	return append([]byte{window, length}, bits...)
}

func TestCheckNSECNameOwnerMatchNoCoveredType(t *testing.T) {
	owner := wireNameBuf("example")
	next := wireNameBuf("zzz", "example")
	bitmap := emptyTypeBitmapWithout(TypeA)
	buf, rr := buildNSECRR(owner, next, bitmap)
	r := wire.NewReader(buf)

	deleteName := wireNameBuf("example")
	dr := wire.NewReader(deleteName)

	if err := checkNSECName(r, rr, dr, 0, TypeA); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCheckNSECNameNormalInterval(t *testing.T) {
	owner := wireNameBuf("example")
	next := wireNameBuf("zzz", "example")
	bitmap := emptyTypeBitmapWithout(TypeA)
	buf, rr := buildNSECRR(owner, next, bitmap)
	r := wire.NewReader(buf)

	deleteName := wireNameBuf("foo", "example")
	dr := wire.NewReader(deleteName)

	if err := checkNSECName(r, rr, dr, 0, TypeA); err != nil {
		t.Fatalf("expected foo.example to fall within (example, zzz.example): %v", err)
	}
}

func TestCheckNSECNameOutsideIntervalFails(t *testing.T) {
	owner := wireNameBuf("foo", "example")
	next := wireNameBuf("zzz", "example")
	bitmap := emptyTypeBitmapWithout(TypeA)
	buf, rr := buildNSECRR(owner, next, bitmap)
	r := wire.NewReader(buf)

	deleteName := wireNameBuf("aaa", "example")
	dr := wire.NewReader(deleteName)

	if err := checkNSECName(r, rr, dr, 0, TypeA); !Is(err, KindDenialProofFailed) {
		t.Fatalf("expected DenialProofFailed, got %v", err)
	}
}

type wordNSEC3Digest struct {
	words map[string][32]byte
}

func (d wordNSEC3Digest) Hash(salt, nameWire []byte, iterations uint16) [32]byte {
	return d.words[string(nameWire)]
}

const base32hexAlphabetForTest = "0123456789ABCDEFGHIJKLMNOPQRSTUV"

// base32hexEncode is a minimal RFC 4648 §7 base32hex encoder (no padding),
// used only to build NSEC3 owner-name fixtures in tests; production
// decoding lives in internal/wire.
func base32hexEncode(data []byte) string {
	var out []byte
	var bitBuf uint64
	bitCount := uint(0)
	for _, b := range data {
		bitBuf = (bitBuf << 8) | uint64(b)
		bitCount += 8
		for bitCount >= 5 {
			bitCount -= 5
			idx := (bitBuf >> bitCount) & 0x1F
			out = append(out, base32hexAlphabetForTest[idx])
		}
	}
	if bitCount > 0 {
		idx := (bitBuf << (5 - bitCount)) & 0x1F
		out = append(out, base32hexAlphabetForTest[idx])
	}
	return string(out)
}

func TestCheckNSEC3NameNormalInterval(t *testing.T) {
	var nsecHash, nextHash, deleteHash [32]byte
	nsecHash[0] = 0x10
	nextHash[0] = 0x30
	deleteHash[0] = 0x20

	deleteName := wireNameBuf("foo", "example")
	digest := wordNSEC3Digest{words: map[string][32]byte{string(deleteName): deleteHash}}

	reg := dnssec.NewRegistry(nil)
	reg.SetNSEC3Digest(1, digest, "test")

	// NSEC3 owner name's first label encodes nsecHash (first 20 bytes, as
	// a SHA-1-width digest would) via base32hex.
	ownerLabel := base32hexEncode(nsecHash[:20])
	owner := wireNameBuf(ownerLabel, "example")

	salt := []byte{0xAA, 0xBB}
	rdata := []byte{1, 0, 0, 5, byte(len(salt))}
	rdata = append(rdata, salt...)
	rdata = append(rdata, byte(20))
	rdata = append(rdata, nextHash[:20]...)
	rdata = append(rdata, emptyTypeBitmapWithout(TypeA)...)

	buf := append([]byte{}, owner...)
	buf = append(buf, byte(TypeNSEC3>>8), byte(TypeNSEC3))
	buf = append(buf, 0, 1)
	buf = append(buf, 0, 0, 0x0E, 0x10)
	buf = append(buf, byte(len(rdata)>>8), byte(len(rdata)))
	rdOffset := len(buf)
	buf = append(buf, rdata...)

	rr := rrset.RR{
		NameOffset: 0,
		DNSType:    TypeNSEC3,
		Class:      ClassIN,
		RDOffset:   rdOffset,
		RDLength:   len(rdata),
		NextOffset: len(buf),
	}
	r := wire.NewReader(buf)
	dr := wire.NewReader(deleteName)

	if err := checkNSEC3Name(reg, r, rr, dr, 0, TypeA); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCheckNSEC3NameOutsideIntervalFails(t *testing.T) {
	var nsecHash, nextHash, deleteHash [32]byte
	nsecHash[0] = 0x10
	nextHash[0] = 0x30
	deleteHash[0] = 0x40 // outside (nsecHash, nextHash)

	deleteName := wireNameBuf("foo", "example")
	digest := wordNSEC3Digest{words: map[string][32]byte{string(deleteName): deleteHash}}

	reg := dnssec.NewRegistry(nil)
	reg.SetNSEC3Digest(1, digest, "test")

	ownerLabel := base32hexEncode(nsecHash[:20])
	owner := wireNameBuf(ownerLabel, "example")

	salt := []byte{0xAA, 0xBB}
	rdata := []byte{1, 0, 0, 5, byte(len(salt))}
	rdata = append(rdata, salt...)
	rdata = append(rdata, byte(20))
	rdata = append(rdata, nextHash[:20]...)
	rdata = append(rdata, emptyTypeBitmapWithout(TypeA)...)

	buf := append([]byte{}, owner...)
	buf = append(buf, byte(TypeNSEC3>>8), byte(TypeNSEC3))
	buf = append(buf, 0, 1)
	buf = append(buf, 0, 0, 0x0E, 0x10)
	buf = append(buf, byte(len(rdata)>>8), byte(len(rdata)))
	rdOffset := len(buf)
	buf = append(buf, rdata...)

	rr := rrset.RR{
		NameOffset: 0,
		DNSType:    TypeNSEC3,
		Class:      ClassIN,
		RDOffset:   rdOffset,
		RDLength:   len(rdata),
		NextOffset: len(buf),
	}
	r := wire.NewReader(buf)
	dr := wire.NewReader(deleteName)

	if err := checkNSEC3Name(reg, r, rr, dr, 0, TypeA); !Is(err, KindDenialProofFailed) {
		t.Fatalf("expected DenialProofFailed, got %v", err)
	}
}
