// Package collabpb holds the wire types for the binary collaboration
// stream, described by collaboration.proto. Marshalling is
// hand-maintained on top of protowire so the repo carries no generated
// code; the bytes are standard proto3 and wire-compatible with any stub
// compiled from the schema.
package collabpb

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrorType mirrors the ErrorType enum.
type ErrorType int32

const (
	ErrorTypeUnknown           ErrorType = 0
	ErrorTypeAuthentication    ErrorType = 1
	ErrorTypeAuthorization     ErrorType = 2
	ErrorTypeDocumentNotFound  ErrorType = 3
	ErrorTypeInvalidUpdate     ErrorType = 4
	ErrorTypeRateLimitExceeded ErrorType = 5
	ErrorTypeConnection        ErrorType = 6
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeAuthentication:
		return "AUTHENTICATION_ERROR"
	case ErrorTypeAuthorization:
		return "AUTHORIZATION_ERROR"
	case ErrorTypeDocumentNotFound:
		return "DOCUMENT_NOT_FOUND"
	case ErrorTypeInvalidUpdate:
		return "INVALID_UPDATE"
	case ErrorTypeRateLimitExceeded:
		return "RATE_LIMIT_EXCEEDED"
	case ErrorTypeConnection:
		return "CONNECTION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// ClientMessage is the envelope every inbound stream message uses. At
// most one of the payload pointers is set (the proto oneof).
type ClientMessage struct {
	ClientID   string
	DocumentID string
	Timestamp  int64

	SyncRequest   *SyncRequest
	Update        *UpdateMessage
	Awareness     *AwarenessUpdate
	JoinDocument  *JoinDocument
	LeaveDocument *LeaveDocument
	HeartBeat     *HeartBeat
}

// ServerMessage is the outbound envelope; at most one payload pointer is
// set.
type ServerMessage struct {
	DocumentID string
	Timestamp  int64

	SyncResponse  *SyncResponse
	Update        *UpdateMessage
	Awareness     *AwarenessUpdate
	UserJoined    *UserJoined
	UserLeft      *UserLeft
	Error         *ErrorMessage
	DocumentState *DocumentState
}

type SyncRequest struct {
	StateVector []byte
}

type SyncResponse struct {
	UpdateData  []byte
	StateVector []byte
}

type UpdateMessage struct {
	UpdateData     []byte
	OriginClientID string
	SequenceNumber int64
}

type AwarenessUpdate struct {
	ClientID       string
	UserInfo       string
	AwarenessState string
	Timestamp      int64
}

type JoinDocument struct {
	UserID       string
	UserName     string
	UserColor    string
	UserMetadata map[string]string
}

type LeaveDocument struct {
	UserID string
}

type HeartBeat struct {
	Timestamp int64
}

type UserJoined struct {
	UserID       string
	UserName     string
	UserColor    string
	ClientID     string
	UserMetadata map[string]string
}

type UserLeft struct {
	UserID   string
	ClientID string
}

type ErrorMessage struct {
	ErrorCode    int32
	ErrorMessage string
	ErrorType    ErrorType
}

type ActiveUser struct {
	UserID    string
	UserName  string
	UserColor string
	ClientID  string
	LastSeen  int64
}

type DocumentState struct {
	StateVector  []byte
	DocumentData []byte
	ActiveUsers  []*ActiveUser
	LastModified int64
}

type GetDocumentStateRequest struct {
	DocumentID string
	ClientID   string
}

type GetDocumentStateResponse struct {
	DocumentState *DocumentState
}

type GetActiveUsersRequest struct {
	DocumentID string
}

type GetActiveUsersResponse struct {
	ActiveUsers []*ActiveUser
}

// append helpers; zero values are omitted like proto3 scalars, submessage
// presence follows the pointer.

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendSub(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// appendStringMap emits map entries in key order so equal maps produce
// equal bytes.
func appendStringMap(b []byte, num protowire.Number, m map[string]string) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entry := appendString(nil, 1, k)
		entry = appendString(entry, 2, m[k])
		b = appendSub(b, num, entry)
	}
	return b
}

func consumeStringMapEntry(data []byte) (key, value string, err error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", "", protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", "", protowire.ParseError(n)
			}
			key = v
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", "", protowire.ParseError(n)
			}
			value = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", "", protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return key, value, nil
}

func skipField(num protowire.Number, typ protowire.Type, data []byte) ([]byte, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return data[n:], nil
}

func (m *ClientMessage) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.ClientID)
	b = appendString(b, 2, m.DocumentID)
	b = appendInt64(b, 3, m.Timestamp)
	switch {
	case m.SyncRequest != nil:
		body, _ := m.SyncRequest.Marshal()
		b = appendSub(b, 4, body)
	case m.Update != nil:
		body, _ := m.Update.Marshal()
		b = appendSub(b, 5, body)
	case m.Awareness != nil:
		body, _ := m.Awareness.Marshal()
		b = appendSub(b, 6, body)
	case m.JoinDocument != nil:
		body, _ := m.JoinDocument.Marshal()
		b = appendSub(b, 7, body)
	case m.LeaveDocument != nil:
		body, _ := m.LeaveDocument.Marshal()
		b = appendSub(b, 8, body)
	case m.HeartBeat != nil:
		body, _ := m.HeartBeat.Marshal()
		b = appendSub(b, 9, body)
	}
	return b, nil
}

func (m *ClientMessage) Unmarshal(data []byte) error {
	*m = ClientMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case (num == 1 || num == 2) && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if num == 1 {
				m.ClientID = v
			} else {
				m.DocumentID = v
			}
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Timestamp = int64(v)
			data = data[n:]
		case num >= 4 && num <= 9 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			var err error
			switch num {
			case 4:
				m.SyncRequest = &SyncRequest{}
				err = m.SyncRequest.Unmarshal(body)
			case 5:
				m.Update = &UpdateMessage{}
				err = m.Update.Unmarshal(body)
			case 6:
				m.Awareness = &AwarenessUpdate{}
				err = m.Awareness.Unmarshal(body)
			case 7:
				m.JoinDocument = &JoinDocument{}
				err = m.JoinDocument.Unmarshal(body)
			case 8:
				m.LeaveDocument = &LeaveDocument{}
				err = m.LeaveDocument.Unmarshal(body)
			case 9:
				m.HeartBeat = &HeartBeat{}
				err = m.HeartBeat.Unmarshal(body)
			}
			if err != nil {
				return err
			}
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *ServerMessage) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.DocumentID)
	b = appendInt64(b, 2, m.Timestamp)
	switch {
	case m.SyncResponse != nil:
		body, _ := m.SyncResponse.Marshal()
		b = appendSub(b, 3, body)
	case m.Update != nil:
		body, _ := m.Update.Marshal()
		b = appendSub(b, 4, body)
	case m.Awareness != nil:
		body, _ := m.Awareness.Marshal()
		b = appendSub(b, 5, body)
	case m.UserJoined != nil:
		body, _ := m.UserJoined.Marshal()
		b = appendSub(b, 6, body)
	case m.UserLeft != nil:
		body, _ := m.UserLeft.Marshal()
		b = appendSub(b, 7, body)
	case m.Error != nil:
		body, _ := m.Error.Marshal()
		b = appendSub(b, 8, body)
	case m.DocumentState != nil:
		body, _ := m.DocumentState.Marshal()
		b = appendSub(b, 9, body)
	}
	return b, nil
}

func (m *ServerMessage) Unmarshal(data []byte) error {
	*m = ServerMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.DocumentID = v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Timestamp = int64(v)
			data = data[n:]
		case num >= 3 && num <= 9 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			var err error
			switch num {
			case 3:
				m.SyncResponse = &SyncResponse{}
				err = m.SyncResponse.Unmarshal(body)
			case 4:
				m.Update = &UpdateMessage{}
				err = m.Update.Unmarshal(body)
			case 5:
				m.Awareness = &AwarenessUpdate{}
				err = m.Awareness.Unmarshal(body)
			case 6:
				m.UserJoined = &UserJoined{}
				err = m.UserJoined.Unmarshal(body)
			case 7:
				m.UserLeft = &UserLeft{}
				err = m.UserLeft.Unmarshal(body)
			case 8:
				m.Error = &ErrorMessage{}
				err = m.Error.Unmarshal(body)
			case 9:
				m.DocumentState = &DocumentState{}
				err = m.DocumentState.Unmarshal(body)
			}
			if err != nil {
				return err
			}
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *SyncRequest) Marshal() ([]byte, error) {
	return appendBytesField(nil, 1, m.StateVector), nil
}

func (m *SyncRequest) Unmarshal(data []byte) error {
	*m = SyncRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.StateVector = append([]byte(nil), v...)
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *SyncResponse) Marshal() ([]byte, error) {
	b := appendBytesField(nil, 1, m.UpdateData)
	b = appendBytesField(b, 2, m.StateVector)
	return b, nil
}

func (m *SyncResponse) Unmarshal(data []byte) error {
	*m = SyncResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if (num == 1 || num == 2) && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			cp := append([]byte(nil), v...)
			if num == 1 {
				m.UpdateData = cp
			} else {
				m.StateVector = cp
			}
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *UpdateMessage) Marshal() ([]byte, error) {
	b := appendBytesField(nil, 1, m.UpdateData)
	b = appendString(b, 2, m.OriginClientID)
	b = appendInt64(b, 3, m.SequenceNumber)
	return b, nil
}

func (m *UpdateMessage) Unmarshal(data []byte) error {
	*m = UpdateMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.UpdateData = append([]byte(nil), v...)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.OriginClientID = v
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.SequenceNumber = int64(v)
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *AwarenessUpdate) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.ClientID)
	b = appendString(b, 2, m.UserInfo)
	b = appendString(b, 3, m.AwarenessState)
	b = appendInt64(b, 4, m.Timestamp)
	return b, nil
}

func (m *AwarenessUpdate) Unmarshal(data []byte) error {
	*m = AwarenessUpdate{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num >= 1 && num <= 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			switch num {
			case 1:
				m.ClientID = v
			case 2:
				m.UserInfo = v
			case 3:
				m.AwarenessState = v
			}
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Timestamp = int64(v)
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *JoinDocument) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.UserID)
	b = appendString(b, 2, m.UserName)
	b = appendString(b, 3, m.UserColor)
	b = appendStringMap(b, 4, m.UserMetadata)
	return b, nil
}

func (m *JoinDocument) Unmarshal(data []byte) error {
	*m = JoinDocument{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num >= 1 && num <= 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			switch num {
			case 1:
				m.UserID = v
			case 2:
				m.UserName = v
			case 3:
				m.UserColor = v
			}
			data = data[n:]
		case num == 4 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			k, v, err := consumeStringMapEntry(body)
			if err != nil {
				return err
			}
			if m.UserMetadata == nil {
				m.UserMetadata = make(map[string]string)
			}
			m.UserMetadata[k] = v
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *LeaveDocument) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.UserID), nil
}

func (m *LeaveDocument) Unmarshal(data []byte) error {
	*m = LeaveDocument{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.UserID = v
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *HeartBeat) Marshal() ([]byte, error) {
	return appendInt64(nil, 1, m.Timestamp), nil
}

func (m *HeartBeat) Unmarshal(data []byte) error {
	*m = HeartBeat{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Timestamp = int64(v)
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *UserJoined) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.UserID)
	b = appendString(b, 2, m.UserName)
	b = appendString(b, 3, m.UserColor)
	b = appendString(b, 4, m.ClientID)
	b = appendStringMap(b, 5, m.UserMetadata)
	return b, nil
}

func (m *UserJoined) Unmarshal(data []byte) error {
	*m = UserJoined{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num >= 1 && num <= 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			switch num {
			case 1:
				m.UserID = v
			case 2:
				m.UserName = v
			case 3:
				m.UserColor = v
			case 4:
				m.ClientID = v
			}
			data = data[n:]
		case num == 5 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			k, v, err := consumeStringMapEntry(body)
			if err != nil {
				return err
			}
			if m.UserMetadata == nil {
				m.UserMetadata = make(map[string]string)
			}
			m.UserMetadata[k] = v
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *UserLeft) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.UserID)
	b = appendString(b, 2, m.ClientID)
	return b, nil
}

func (m *UserLeft) Unmarshal(data []byte) error {
	*m = UserLeft{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if (num == 1 || num == 2) && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if num == 1 {
				m.UserID = v
			} else {
				m.ClientID = v
			}
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *ErrorMessage) Marshal() ([]byte, error) {
	b := appendInt64(nil, 1, int64(m.ErrorCode))
	b = appendString(b, 2, m.ErrorMessage)
	b = appendInt64(b, 3, int64(m.ErrorType))
	return b, nil
}

func (m *ErrorMessage) Unmarshal(data []byte) error {
	*m = ErrorMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ErrorCode = int32(v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ErrorMessage = v
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ErrorType = ErrorType(v)
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *ActiveUser) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.UserID)
	b = appendString(b, 2, m.UserName)
	b = appendString(b, 3, m.UserColor)
	b = appendString(b, 4, m.ClientID)
	b = appendInt64(b, 5, m.LastSeen)
	return b, nil
}

func (m *ActiveUser) Unmarshal(data []byte) error {
	*m = ActiveUser{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num >= 1 && num <= 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			switch num {
			case 1:
				m.UserID = v
			case 2:
				m.UserName = v
			case 3:
				m.UserColor = v
			case 4:
				m.ClientID = v
			}
			data = data[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.LastSeen = int64(v)
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *DocumentState) Marshal() ([]byte, error) {
	b := appendBytesField(nil, 1, m.StateVector)
	b = appendBytesField(b, 2, m.DocumentData)
	for _, u := range m.ActiveUsers {
		body, _ := u.Marshal()
		b = appendSub(b, 3, body)
	}
	b = appendInt64(b, 4, m.LastModified)
	return b, nil
}

func (m *DocumentState) Unmarshal(data []byte) error {
	*m = DocumentState{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case (num == 1 || num == 2) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			cp := append([]byte(nil), v...)
			if num == 1 {
				m.StateVector = cp
			} else {
				m.DocumentData = cp
			}
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			u := &ActiveUser{}
			if err := u.Unmarshal(body); err != nil {
				return err
			}
			m.ActiveUsers = append(m.ActiveUsers, u)
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.LastModified = int64(v)
			data = data[n:]
		default:
			var err error
			if data, err = skipField(num, typ, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *GetDocumentStateRequest) Marshal() ([]byte, error) {
	b := appendString(nil, 1, m.DocumentID)
	b = appendString(b, 2, m.ClientID)
	return b, nil
}

func (m *GetDocumentStateRequest) Unmarshal(data []byte) error {
	*m = GetDocumentStateRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if (num == 1 || num == 2) && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if num == 1 {
				m.DocumentID = v
			} else {
				m.ClientID = v
			}
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *GetDocumentStateResponse) Marshal() ([]byte, error) {
	var b []byte
	if m.DocumentState != nil {
		body, _ := m.DocumentState.Marshal()
		b = appendSub(b, 1, body)
	}
	return b, nil
}

func (m *GetDocumentStateResponse) Unmarshal(data []byte) error {
	*m = GetDocumentStateResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.DocumentState = &DocumentState{}
			if err := m.DocumentState.Unmarshal(body); err != nil {
				return err
			}
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *GetActiveUsersRequest) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.DocumentID), nil
}

func (m *GetActiveUsersRequest) Unmarshal(data []byte) error {
	*m = GetActiveUsersRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.DocumentID = v
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *GetActiveUsersResponse) Marshal() ([]byte, error) {
	var b []byte
	for _, u := range m.ActiveUsers {
		body, _ := u.Marshal()
		b = appendSub(b, 1, body)
	}
	return b, nil
}

func (m *GetActiveUsersResponse) Unmarshal(data []byte) error {
	*m = GetActiveUsersResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			u := &ActiveUser{}
			if err := u.Unmarshal(body); err != nil {
				return err
			}
			m.ActiveUsers = append(m.ActiveUsers, u)
			data = data[n:]
			continue
		}
		var err error
		if data, err = skipField(num, typ, data); err != nil {
			return err
		}
	}
	return nil
}

// marshaler and unmarshaler are what the Codec requires of every message.
type marshaler interface {
	Marshal() ([]byte, error)
}

type unmarshaler interface {
	Unmarshal([]byte) error
}

// Codec is the gRPC codec for these wire types. Register it on the
// server with grpc.ForceServerCodec and on clients with
// grpc.ForceCodec / grpc.WithDefaultCallOptions.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(marshaler)
	if !ok {
		return nil, fmt.Errorf("collabpb: cannot marshal %T", v)
	}
	return m.Marshal()
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	u, ok := v.(unmarshaler)
	if !ok {
		return fmt.Errorf("collabpb: cannot unmarshal into %T", v)
	}
	return u.Unmarshal(data)
}

func (Codec) Name() string { return "proto" }
