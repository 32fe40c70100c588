package collabpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessageRoundTrip(t *testing.T) {
	in := &ClientMessage{
		ClientID:   "c-1",
		DocumentID: "doc-1",
		Timestamp:  1700000000123,
		JoinDocument: &JoinDocument{
			UserID:       "alice",
			UserName:     "Alice",
			UserColor:    "#ff0000",
			UserMetadata: map[string]string{"team": "docs", "role": "editor"},
		},
	}

	data, err := in.Marshal()
	require.NoError(t, err)

	out := &ClientMessage{}
	require.NoError(t, out.Unmarshal(data))
	assert.Equal(t, in, out)
}

func TestServerMessageRoundTrip(t *testing.T) {
	in := &ServerMessage{
		DocumentID: "doc-1",
		Timestamp:  42,
		Update: &UpdateMessage{
			UpdateData:     []byte{0x01, 0x02, 0x03},
			OriginClientID: "c-9",
			SequenceNumber: 7,
		},
	}

	data, err := in.Marshal()
	require.NoError(t, err)

	out := &ServerMessage{}
	require.NoError(t, out.Unmarshal(data))
	assert.Equal(t, in, out)
}

func TestDocumentStateRoundTrip(t *testing.T) {
	in := &DocumentState{
		StateVector:  []byte{0x0a},
		DocumentData: []byte("snapshot"),
		ActiveUsers: []*ActiveUser{
			{UserID: "alice", UserName: "Alice", ClientID: "c-1", LastSeen: 99},
			{UserID: "bob", UserColor: "#00ff00", ClientID: "c-2"},
		},
		LastModified: 1700000000,
	}

	data, err := in.Marshal()
	require.NoError(t, err)

	out := &DocumentState{}
	require.NoError(t, out.Unmarshal(data))
	assert.Equal(t, in, out)
}

func TestErrorMessageRoundTrip(t *testing.T) {
	in := &ErrorMessage{ErrorCode: 404, ErrorMessage: "document not found", ErrorType: ErrorTypeDocumentNotFound}

	data, err := in.Marshal()
	require.NoError(t, err)

	out := &ErrorMessage{}
	require.NoError(t, out.Unmarshal(data))
	assert.Equal(t, in, out)
}

// Golden bytes pin the wire layout so a regression in the hand-rolled
// encoder cannot slip through a symmetric round trip.
func TestSyncRequestGoldenBytes(t *testing.T) {
	m := &SyncRequest{StateVector: []byte{0xde, 0xad}}
	data, err := m.Marshal()
	require.NoError(t, err)
	// field 1, length-delimited, two payload bytes
	assert.Equal(t, []byte{0x0a, 0x02, 0xde, 0xad}, data)
}

func TestHeartBeatGoldenBytes(t *testing.T) {
	m := &HeartBeat{Timestamp: 300}
	data, err := m.Marshal()
	require.NoError(t, err)
	// field 1 varint, 300 = 0xac 0x02
	assert.Equal(t, []byte{0x08, 0xac, 0x02}, data)
}

func TestMapEncodingIsDeterministic(t *testing.T) {
	m := &JoinDocument{
		UserID:       "alice",
		UserMetadata: map[string]string{"b": "2", "a": "1", "c": "3"},
	}
	first, err := m.Marshal()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := m.Marshal()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshalTruncatedFails(t *testing.T) {
	good, err := (&ClientMessage{ClientID: "c-1", HeartBeat: &HeartBeat{Timestamp: 5}}).Marshal()
	require.NoError(t, err)

	bad := good[:len(good)-1]
	assert.Error(t, (&ClientMessage{}).Unmarshal(bad))
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	data, err := (&UserLeft{UserID: "alice", ClientID: "c-1"}).Marshal()
	require.NoError(t, err)
	// Unknown varint field 15 appended by a newer peer.
	data = append(data, 0x78, 0x01)

	out := &UserLeft{}
	require.NoError(t, out.Unmarshal(data))
	assert.Equal(t, "alice", out.UserID)
	assert.Equal(t, "c-1", out.ClientID)
}

func TestEmptyMessagesMarshalEmpty(t *testing.T) {
	for _, m := range []marshaler{
		&SyncRequest{}, &HeartBeat{}, &LeaveDocument{}, &GetActiveUsersRequest{},
	} {
		data, err := m.Marshal()
		require.NoError(t, err)
		assert.Empty(t, data)
	}
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	c := Codec{}
	_, err := c.Marshal("not a message")
	assert.Error(t, err)
	assert.Error(t, c.Unmarshal(nil, 42))
	assert.Equal(t, "proto", c.Name())
}
