package crdt

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// DecodeError reports malformed update or state-vector bytes.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "crdt: decode: " + e.Reason
}

func decodeErrorf(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// section is one client's contiguous run of operations inside an update.
// The i-th op carries clock start+i; clocks begin at 1.
type section struct {
	client uint64
	start  uint64
	ops    [][]byte
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) remaining() int { return len(r.buf) - r.pos }

func (r *byteReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, decodeErrorf("truncated varint at offset %d", r.pos)
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) bytes(n uint64) ([]byte, error) {
	if n > uint64(r.remaining()) {
		return nil, decodeErrorf("length %d exceeds remaining %d bytes", n, r.remaining())
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

// decodeUpdate parses the lib0-style framing:
//
//	numClients { client start numOps { opLen opBytes }* }*
//
// Zero-length input is the canonical empty update.
func decodeUpdate(b []byte) ([]section, error) {
	if len(b) == 0 {
		return nil, nil
	}
	r := &byteReader{buf: b}
	numClients, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if numClients > uint64(r.remaining()) {
		return nil, decodeErrorf("client count %d exceeds remaining bytes", numClients)
	}
	sections := make([]section, 0, numClients)
	for i := uint64(0); i < numClients; i++ {
		client, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		start, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if start == 0 {
			return nil, decodeErrorf("client %d: clock 0 is not a valid start", client)
		}
		numOps, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if numOps == 0 {
			return nil, decodeErrorf("client %d: empty run", client)
		}
		if numOps > uint64(r.remaining()) {
			return nil, decodeErrorf("client %d: op count %d exceeds remaining bytes", client, numOps)
		}
		ops := make([][]byte, 0, numOps)
		for j := uint64(0); j < numOps; j++ {
			opLen, err := r.uvarint()
			if err != nil {
				return nil, err
			}
			op, err := r.bytes(opLen)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
		sections = append(sections, section{client: client, start: start, ops: ops})
	}
	if r.remaining() != 0 {
		return nil, decodeErrorf("%d trailing bytes", r.remaining())
	}
	return sections, nil
}

// encodeUpdate emits the canonical form: sections ordered by ascending
// client id, one run per client. No sections encodes to zero bytes.
func encodeUpdate(sections []section) []byte {
	if len(sections) == 0 {
		return []byte{}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].client < sections[j].client })
	buf := binary.AppendUvarint(nil, uint64(len(sections)))
	for _, s := range sections {
		buf = binary.AppendUvarint(buf, s.client)
		buf = binary.AppendUvarint(buf, s.start)
		buf = binary.AppendUvarint(buf, uint64(len(s.ops)))
		for _, op := range s.ops {
			buf = binary.AppendUvarint(buf, uint64(len(op)))
			buf = append(buf, op...)
		}
	}
	return buf
}

// EncodeOps builds a single-client update whose first operation carries
// the given clock. Clients producing updates locally (and tests) use this
// to frame their operation runs.
func EncodeOps(client, start uint64, ops ...[]byte) []byte {
	return encodeUpdate([]section{{client: client, start: start, ops: ops}})
}

// decodeStateVector parses client→clock pairs. Zero-length input is the
// empty state vector (a peer that knows nothing).
func decodeStateVector(b []byte) (map[uint64]uint64, error) {
	sv := make(map[uint64]uint64)
	if len(b) == 0 {
		return sv, nil
	}
	r := &byteReader{buf: b}
	numClients, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if numClients > uint64(r.remaining()) {
		return nil, decodeErrorf("client count %d exceeds remaining bytes", numClients)
	}
	for i := uint64(0); i < numClients; i++ {
		client, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		clock, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		sv[client] = clock
	}
	if r.remaining() != 0 {
		return nil, decodeErrorf("%d trailing bytes", r.remaining())
	}
	return sv, nil
}

// encodeStateVector emits client→clock pairs in ascending client order so
// equal vectors produce identical bytes.
func encodeStateVector(sv map[uint64]uint64) []byte {
	clients := make([]uint64, 0, len(sv))
	for c := range sv {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })
	buf := binary.AppendUvarint(nil, uint64(len(clients)))
	for _, c := range clients {
		buf = binary.AppendUvarint(buf, c)
		buf = binary.AppendUvarint(buf, sv[c])
	}
	return buf
}
