// Package rrset provides a lazy, value-typed cursor over a concatenation of
// DNS resource records in wire format. It never allocates and carries no
// hidden state: a Cursor is fully described by (buffer, offset) and can be
// restarted at any time by reconstructing it from those two values.
package rrset

import (
	"errors"

	"github.com/dnsscience/dnssecoracle/internal/wire"
)

var (
	// ErrTruncated is returned when an RR's fixed fields or rdata run past
	// the end of the buffer.
	ErrTruncated = errors.New("rrset: truncated record")
)

// RR describes one resource record located within a parent buffer. All
// offsets are absolute within that buffer.
type RR struct {
	NameOffset  int
	DNSType     uint16
	Class       uint16
	TTL         uint32
	RDOffset    int
	RDLength    int
	NextOffset  int
}

// RData returns rr's rdata bytes, read through r, which must wrap the
// buffer rr was parsed from.
func (rr RR) RData(r wire.Reader) ([]byte, error) {
	return r.Substring(rr.RDOffset, rr.RDLength)
}

// Cursor is a restartable, value-typed iterator over RRs packed back to
// back starting at Offset within Buf. Advancing never mutates Buf; each
// call to Next returns a new Cursor value for the following position.
type Cursor struct {
	r      wire.Reader
	offset int
	end    int
}

// NewCursor constructs a Cursor over buf, starting at start and reading
// until end (exclusive). Passing end == -1 means "to the end of buf".
func NewCursor(buf []byte, start, end int) Cursor {
	if end < 0 {
		end = len(buf)
	}
	return Cursor{r: wire.NewReader(buf), offset: start, end: end}
}

// Done reports whether the cursor has reached the end of its range.
func (c Cursor) Done() bool {
	return c.offset >= c.end
}

// Offset returns the cursor's current absolute position.
func (c Cursor) Offset() int { return c.offset }

// Next parses the RR at the cursor's current position and returns it along
// with a new Cursor positioned immediately after it. It is an error to
// call Next when Done reports true.
func (c Cursor) Next() (RR, Cursor, error) {
	if c.Done() {
		return RR{}, c, ErrTruncated
	}

	nameOff := c.offset
	nameLen, err := c.r.NameLength(nameOff)
	if err != nil {
		return RR{}, c, err
	}
	pos := nameOff + nameLen

	dnstype, err := c.r.ReadU16(pos)
	if err != nil {
		return RR{}, c, err
	}
	pos += 2

	class, err := c.r.ReadU16(pos)
	if err != nil {
		return RR{}, c, err
	}
	pos += 2

	ttl, err := c.r.ReadU32(pos)
	if err != nil {
		return RR{}, c, err
	}
	pos += 4

	rdlen, err := c.r.ReadU16(pos)
	if err != nil {
		return RR{}, c, err
	}
	pos += 2

	rdOff := pos
	rdEnd := rdOff + int(rdlen)
	if rdEnd > c.end {
		return RR{}, c, ErrTruncated
	}
	if _, err := c.r.Substring(rdOff, int(rdlen)); err != nil {
		return RR{}, c, err
	}

	rr := RR{
		NameOffset: nameOff,
		DNSType:    dnstype,
		Class:      class,
		TTL:        ttl,
		RDOffset:   rdOff,
		RDLength:   int(rdlen),
		NextOffset: rdEnd,
	}
	next := Cursor{r: c.r, offset: rdEnd, end: c.end}
	return rr, next, nil
}

// Reader exposes the underlying wire.Reader so callers can read names and
// rdata without re-wrapping the buffer.
func (c Cursor) Reader() wire.Reader { return c.r }
