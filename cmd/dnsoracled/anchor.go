package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/miekg/dns"
)

// loadAnchors reads a zone-file fragment of DS records (e.g. "$ORIGIN .\n.
// IN DS 20326 8 2 E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D")
// and packs each DS record into the owner+type+class+ttl+rdlen+rdata wire
// form internal/oracle.NewStore expects as its anchors byte string
// (spec.md §4.5). miekg/dns.ZoneParser is used only here, at the config
// boundary, to turn zone-file text into structured RRs; this function
// does the final wire-packing by hand rather than calling dns.Msg.Pack,
// since that may choose a compressed owner name and internal/wire's
// reader rejects any compression pointer outright (spec.md §4.1, §9.5) —
// crossing that boundary with compression-free bytes is the one property
// that actually matters here.
func loadAnchors(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open anchor zone file: %w", err)
	}
	defer f.Close()

	zp := dns.NewZoneParser(f, "", path)
	var out []byte
	count := 0
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		ds, isDS := rr.(*dns.DS)
		if !isDS {
			return nil, fmt.Errorf("anchor zone file: non-DS record %s", dns.TypeToString[rr.Header().Rrtype])
		}
		out = append(out, packDSRR(ds)...)
		count++
	}
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("parse anchor zone file: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("anchor zone file %s: no DS records", path)
	}
	return out, nil
}

// packDSRR encodes one DS record as owner(wire)+type(2)+class(2)+ttl(4)+
// rdlen(2)+rdata, where rdata is keytag(2)+algorithm(1)+digesttype(1)+digest.
func packDSRR(ds *dns.DS) []byte {
	owner := packName(ds.Hdr.Name)
	digest, err := hex.DecodeString(ds.Digest)
	if err != nil {
		digest = nil
	}
	rdata := make([]byte, 0, 4+len(digest))
	rdata = append(rdata, byte(ds.KeyTag>>8), byte(ds.KeyTag))
	rdata = append(rdata, ds.Algorithm, ds.DigestType)
	rdata = append(rdata, digest...)

	buf := make([]byte, 0, len(owner)+10+len(rdata))
	buf = append(buf, owner...)
	buf = append(buf, 0, 43) // TypeDS
	buf = append(buf, 0, 1)  // class IN
	buf = append(buf, byte(ds.Hdr.Ttl>>24), byte(ds.Hdr.Ttl>>16), byte(ds.Hdr.Ttl>>8), byte(ds.Hdr.Ttl))
	buf = append(buf, byte(len(rdata)>>8), byte(len(rdata)))
	buf = append(buf, rdata...)
	return buf
}

// packName encodes a presentation-format domain name (e.g. "." or
// "example.com.") as an uncompressed wire-format name.
func packName(name string) []byte {
	name = strings.TrimSuffix(dns.Fqdn(name), ".")
	if name == "" {
		return []byte{0}
	}
	var buf []byte
	for _, label := range dns.SplitDomainName(name) {
		buf = append(buf, byte(len(label)))
		buf = append(buf, []byte(label)...)
	}
	buf = append(buf, 0)
	return buf
}
