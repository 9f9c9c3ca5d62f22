package rrset

import (
	"testing"
)

// buildRR appends one wire-format RR: name, type, class, ttl, rdlength, rdata.
func buildRR(name []byte, dnstype, class uint16, ttl uint32, rdata []byte) []byte {
	out := append([]byte{}, name...)
	out = append(out, byte(dnstype>>8), byte(dnstype))
	out = append(out, byte(class>>8), byte(class))
	out = append(out, byte(ttl>>24), byte(ttl>>16), byte(ttl>>8), byte(ttl))
	out = append(out, byte(len(rdata)>>8), byte(len(rdata)))
	out = append(out, rdata...)
	return out
}

func TestCursorSingleRR(t *testing.T) {
	name := []byte{0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 0x00}
	buf := buildRR(name, 1, 1, 3600, []byte{1, 2, 3, 4})

	c := NewCursor(buf, 0, -1)
	if c.Done() {
		t.Fatal("cursor should not be done before first Next")
	}
	rr, next, err := c.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rr.DNSType != 1 || rr.Class != 1 || rr.TTL != 3600 {
		t.Fatalf("unexpected RR: %+v", rr)
	}
	if rr.RDLength != 4 {
		t.Fatalf("expected rdlength 4, got %d", rr.RDLength)
	}
	rdata, err := rr.RData(c.Reader())
	if err != nil || len(rdata) != 4 {
		t.Fatalf("RData = %v, %v", rdata, err)
	}
	if !next.Done() {
		t.Fatal("expected cursor exhausted after single RR")
	}
}

func TestCursorMultipleRRsRestartable(t *testing.T) {
	name := []byte{0x03, 'f', 'o', 'o', 0x00}
	buf := append(buildRR(name, 1, 1, 60, []byte{1, 1, 1, 1}), buildRR(name, 1, 1, 60, []byte{2, 2, 2, 2})...)

	c := NewCursor(buf, 0, -1)
	var rrs []RR
	for !c.Done() {
		rr, next, err := c.Next()
		if err != nil {
			t.Fatal(err)
		}
		rrs = append(rrs, rr)
		c = next
	}
	if len(rrs) != 2 {
		t.Fatalf("expected 2 RRs, got %d", len(rrs))
	}

	// Restart from a recorded offset and confirm identical parse.
	restarted := NewCursor(buf, rrs[1].NameOffset, -1)
	rr2, _, err := restarted.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rr2 != rrs[1] {
		t.Fatalf("restart mismatch: %+v vs %+v", rr2, rrs[1])
	}
}

func TestCursorTruncatedRData(t *testing.T) {
	name := []byte{0x00}
	buf := append([]byte{}, name...)
	buf = append(buf, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x3C, 0x00, 0x10) // rdlength=16 but no bytes follow
	c := NewCursor(buf, 0, -1)
	if _, _, err := c.Next(); err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestCursorEmptyRange(t *testing.T) {
	c := NewCursor(nil, 0, -1)
	if !c.Done() {
		t.Fatal("empty buffer cursor should be done immediately")
	}
}
