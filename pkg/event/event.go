package event

import "github.com/hillu/laurel/pkg/record"

// Event is the maximal set of records sharing an ID (§3). It is owned by the
// Coalescer until flushed, then immutable.
type Event struct {
	ID        ID
	Records   []*record.Record
	Truncated bool // per-event record/byte cap was exceeded
	Late      bool // emitted out of non-decreasing ID order (§4.3/§8)
}

// Append adds rec to the event unless it is bit-identical to a record
// already present, per the Record dedup rule in §3. Returns false if the
// record was suppressed as a duplicate.
func (e *Event) Append(rec *record.Record) bool {
	for _, existing := range e.Records {
		if existing.Equal(rec) {
			return false
		}
	}
	e.Records = append(e.Records, rec)
	return true
}

// Size is the approximate total byte footprint of all records in the event,
// used against the per-event byte ceiling.
func (e *Event) Size() int {
	n := 0
	for _, r := range e.Records {
		n += r.Size()
	}
	return n
}
