package transcript

import "sync/atomic"

// SequenceAllocator hands out observation sequence numbers for one capture
// session. Numbers start at 1, strictly increase and are never reused.
// Share one allocator between everything that observes rows in a session.
type SequenceAllocator struct {
	last atomic.Int64
}

func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{}
}

// Next returns the next unused sequence number.
func (a *SequenceAllocator) Next() int64 {
	return a.last.Add(1)
}

// Last returns the most recently allocated number, or 0 if none has been.
func (a *SequenceAllocator) Last() int64 {
	return a.last.Load()
}

// Stamp assigns a fresh number, in slice order, to every record that has none.
func (a *SequenceAllocator) Stamp(records []RawRecord) {
	for i := range records {
		if records[i].ObservationSeq <= 0 {
			records[i].ObservationSeq = a.Next()
		}
	}
}

// Resequence gives messages restored from storage fresh sequence numbers in
// slice order, so they rank as observed before anything the allocator
// stamps afterward.
func Resequence(msgs []NormalizedMessage, a *SequenceAllocator) {
	for i := range msgs {
		msgs[i].seq = a.Next()
	}
}
