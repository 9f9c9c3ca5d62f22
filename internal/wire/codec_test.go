package wire

import (
	"errors"
	"testing"
)

func TestReadU8U16U32(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x00, 0x00, 0x00, 0x2A}
	r := NewReader(buf)

	u8, err := r.ReadU8(0)
	if err != nil || u8 != 0x01 {
		t.Fatalf("ReadU8 = %v, %v", u8, err)
	}

	u16, err := r.ReadU16(1)
	if err != nil || u16 != 0x0203 {
		t.Fatalf("ReadU16 = %v, %v", u16, err)
	}

	u32, err := r.ReadU32(3)
	if err != nil || u32 != 0x2A {
		t.Fatalf("ReadU32 = %v, %v", u32, err)
	}

	if _, err := r.ReadU32(4); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestNameLengthRoot(t *testing.T) {
	buf := []byte{0x00}
	r := NewReader(buf)
	n, err := r.NameLength(0)
	if err != nil || n != 1 {
		t.Fatalf("NameLength(root) = %d, %v", n, err)
	}
	lc, err := r.LabelCount(0)
	if err != nil || lc != 0 {
		t.Fatalf("LabelCount(root) = %d, %v", lc, err)
	}
}

func TestNameLengthRejectsCompressionPointer(t *testing.T) {
	buf := []byte{0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 0xC0, 0x00}
	r := NewReader(buf)
	if _, err := r.NameLength(0); !errors.Is(err, ErrCompressionPointer) {
		t.Fatalf("expected ErrCompressionPointer, got %v", err)
	}
}

func wireName(labels ...string) []byte {
	var out []byte
	for _, l := range labels {
		out = append(out, byte(len(l)))
		out = append(out, l...)
	}
	return append(out, 0x00)
}

func TestCompareNamesCanonicalOrder(t *testing.T) {
	a := NewReader(wireName("a", "example"))
	b := NewReader(wireName("b", "example"))
	cmp, err := CompareNames(a, 0, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if cmp >= 0 {
		t.Fatalf("expected a.example < b.example, got %d", cmp)
	}

	// Case-insensitive.
	upper := NewReader(wireName("A", "EXAMPLE"))
	cmp, err = CompareNames(a, 0, upper, 0)
	if err != nil {
		t.Fatal(err)
	}
	if cmp != 0 {
		t.Fatalf("expected case-insensitive equality, got %d", cmp)
	}

	// Antisymmetry.
	cmp1, _ := CompareNames(a, 0, b, 0)
	cmp2, _ := CompareNames(b, 0, a, 0)
	if (cmp1 < 0) == (cmp2 < 0) && cmp1 != 0 {
		t.Fatalf("antisymmetry violated: %d vs %d", cmp1, cmp2)
	}

	// Right-to-left: "zzz.example" > "foo.example" because "example" ties
	// and then "zzz" > "foo", but "example" < "foo.example" (fewer labels,
	// all-common suffix wins for the shorter name).
	short := NewReader(wireName("example"))
	long := NewReader(wireName("foo", "example"))
	cmp, err = CompareNames(short, 0, long, 0)
	if err != nil {
		t.Fatal(err)
	}
	if cmp >= 0 {
		t.Fatalf("expected example < foo.example, got %d", cmp)
	}
}

func TestCheckTypeBitmap(t *testing.T) {
	// Window 0, bitmap length 4, with bit for type 1 (A) and type 28 (AAAA) set.
	// Bits are numbered from the most significant bit of byte 0 (type 0).
	// Type 1 -> byte 0, bit 1 (0x40). Type 28 -> byte 3, bit 4 (0x08).
	rdata := []byte{0x00, 0x04, 0x40, 0x00, 0x00, 0x08}
	r := NewReader(rdata)

	present, err := r.CheckTypeBitmap(0, len(rdata), 1)
	if err != nil || !present {
		t.Fatalf("type 1 present = %v, %v", present, err)
	}
	present, err = r.CheckTypeBitmap(0, len(rdata), 28)
	if err != nil || !present {
		t.Fatalf("type 28 present = %v, %v", present, err)
	}
	present, err = r.CheckTypeBitmap(0, len(rdata), 15)
	if err != nil || present {
		t.Fatalf("type 15 should be absent, got %v, %v", present, err)
	}
	// Type in a window that doesn't exist at all.
	present, err = r.CheckTypeBitmap(0, len(rdata), 257)
	if err != nil || present {
		t.Fatalf("type 257 should be absent, got %v, %v", present, err)
	}
}

func TestBase32HexDecodeWordRoundTrip(t *testing.T) {
	// "0123456789ABCDEFGHIJKLMNOPQRSTUV" decodes each symbol to its index;
	// verify a known SHA-1-sized (20-byte) encoding round-trips through
	// length accounting: ceil(20*8/5) = 32 chars, no padding.
	encoded := []byte("T5DJR2OAOHI3GA0I3PH3V7I1FG772IML")
	r := NewReader(encoded)
	word, err := r.Base32HexDecodeWord(0, len(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if word == ([32]byte{}) {
		t.Fatal("expected non-zero decoded word")
	}
	for i := 20; i < 32; i++ {
		if word[i] != 0 {
			t.Fatalf("expected 32 chars to fill exactly 20 bytes, byte %d = %#x", i, word[i])
		}
	}
}

func TestReadBytesNZeroPads(t *testing.T) {
	r := NewReader([]byte{0xAA, 0xBB, 0xCC})
	word, err := r.ReadBytesN(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if word[0] != 0xAA || word[1] != 0xBB || word[2] != 0xCC || word[3] != 0x00 {
		t.Fatalf("unexpected word: %v", word)
	}
}

func TestBase32HexDecodeWordRejectsOversize(t *testing.T) {
	r := NewReader([]byte("00000000000000000000000000000000000000000000000000000000"))
	if _, err := r.Base32HexDecodeWord(0, 56); !errors.Is(err, ErrWordTooLong) {
		t.Fatalf("expected ErrWordTooLong, got %v", err)
	}
}
