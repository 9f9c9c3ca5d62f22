package oracle

import (
	"context"

	"github.com/dnsscience/dnssecoracle/internal/eventbus"
)

// RRSetUpdated is emitted exactly once per successful submit_rrset state
// transition (spec.md §6.5). No event is emitted on the idempotent no-op
// path (equal fingerprint) or on any failed call.
type RRSetUpdated struct {
	Name []byte
	RRs  []byte
}

func publishRRSetUpdated(bus *eventbus.Bus, name, rrs []byte) {
	if bus == nil {
		return
	}
	bus.Publish(context.Background(), eventbus.TopicOracle, RRSetUpdated{
		Name: append([]byte{}, name...),
		RRs:  append([]byte{}, rrs...),
	})
}
