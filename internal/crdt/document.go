// Package crdt implements the operation-log replica behind every
// collaborative document. Updates are opaque per-client operation runs in
// lib0-style varint framing; a state vector summarises the clocks a
// replica knows so peers can exchange exactly the operations they miss.
//
// Merging is commutative and idempotent: operations at or below a known
// clock are skipped, and runs that arrive ahead of a gap are parked until
// the gap closes, so any permutation of the same updates converges to the
// same state and the same encoded bytes.
//
// A Document is not safe for concurrent use; the registry serialises
// access through its per-entry lock.
package crdt

// Document is a single CRDT replica.
type Document struct {
	ops     map[uint64][][]byte // client → integrated ops; index i holds clock i+1
	pending map[uint64][]section
}

// New returns an empty replica.
func New() *Document {
	return &Document{
		ops:     make(map[uint64][][]byte),
		pending: make(map[uint64][]section),
	}
}

// StateVector returns the canonical encoding of the clocks this replica
// has integrated. Parked (gapped) operations are not counted.
func (d *Document) StateVector() []byte {
	sv := make(map[uint64]uint64, len(d.ops))
	for client, ops := range d.ops {
		sv[client] = uint64(len(ops))
	}
	return encodeStateVector(sv)
}

// ApplyUpdate merges an update and returns the canonically-encoded delta
// that was actually integrated by this call, which may be empty (already
// known) or larger than the input (parked runs whose gap just closed).
// Malformed input returns a *DecodeError and leaves the replica untouched.
func (d *Document) ApplyUpdate(update []byte) ([]byte, error) {
	sections, err := decodeUpdate(update)
	if err != nil {
		return nil, err
	}
	before := make(map[uint64]uint64, len(d.ops))
	for client, ops := range d.ops {
		before[client] = uint64(len(ops))
	}

	for _, s := range sections {
		d.integrateOrPark(s)
	}
	d.drainPending()

	var delta []section
	for client, ops := range d.ops {
		known := before[client]
		if uint64(len(ops)) > known {
			run := make([][]byte, uint64(len(ops))-known)
			copy(run, ops[known:])
			delta = append(delta, section{client: client, start: known + 1, ops: run})
		}
	}
	return encodeUpdate(delta), nil
}

// Diff returns the update carrying every operation this replica has
// integrated above the peer's clocks. A peer that is fully caught up
// receives zero bytes.
func (d *Document) Diff(peerStateVector []byte) ([]byte, error) {
	peer, err := decodeStateVector(peerStateVector)
	if err != nil {
		return nil, err
	}
	var sections []section
	for client, ops := range d.ops {
		clock := peer[client]
		if uint64(len(ops)) <= clock {
			continue
		}
		run := make([][]byte, uint64(len(ops))-clock)
		copy(run, ops[clock:])
		sections = append(sections, section{client: client, start: clock + 1, ops: run})
	}
	return encodeUpdate(sections), nil
}

// EncodeFull returns the whole document as a single update, equivalent to
// Diff against the empty state vector.
func (d *Document) EncodeFull() []byte {
	full, _ := d.Diff(nil)
	return full
}

// integrateOrPark merges one run. Already-known clocks are trimmed; a run
// starting beyond known+1 is parked until earlier operations arrive.
func (d *Document) integrateOrPark(s section) {
	known := uint64(len(d.ops[s.client]))
	if s.start+uint64(len(s.ops)) <= known+1 {
		return // entirely known
	}
	if s.start <= known+1 {
		d.ops[s.client] = append(d.ops[s.client], s.ops[known+1-s.start:]...)
		return
	}
	for _, p := range d.pending[s.client] {
		if p.start == s.start && len(p.ops) == len(s.ops) {
			return // identical run already parked
		}
	}
	d.pending[s.client] = append(d.pending[s.client], s)
}

// drainPending retries parked runs until no further progress is made.
func (d *Document) drainPending() {
	for {
		progressed := false
		for client, runs := range d.pending {
			kept := runs[:0]
			for _, p := range runs {
				known := uint64(len(d.ops[client]))
				switch {
				case p.start+uint64(len(p.ops)) <= known+1:
					progressed = true // fully absorbed elsewhere, discard
				case p.start <= known+1:
					d.ops[client] = append(d.ops[client], p.ops[known+1-p.start:]...)
					progressed = true
				default:
					kept = append(kept, p)
				}
			}
			if len(kept) == 0 {
				delete(d.pending, client)
			} else {
				d.pending[client] = kept
			}
		}
		if !progressed {
			return
		}
	}
}
