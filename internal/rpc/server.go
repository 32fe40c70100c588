// Package rpc adapts the collaboration use-cases to the binary gRPC
// surface. The stream protocol is strict: the first client message must
// be a JoinDocument, everything after that is sync, update, awareness,
// heartbeat or leave.
package rpc

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/collab-docs/collabserver/internal/broadcast"
	"github.com/collab-docs/collabserver/internal/collab"
	"github.com/collab-docs/collabserver/internal/event"
	"github.com/collab-docs/collabserver/internal/rpc/collabpb"
	"github.com/collab-docs/collabserver/internal/session"
)

// Server implements collabpb.CollaborationServer on top of the use-case
// façade.
type Server struct {
	usecases *collab.UseCases
}

func NewServer(u *collab.UseCases) *Server {
	return &Server{usecases: u}
}

// NewGRPCServer builds a ready-to-serve grpc.Server with the
// hand-maintained codec forced and the collaboration service registered.
func NewGRPCServer(u *collab.UseCases, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ForceServerCodec(collabpb.Codec{}))
	srv := grpc.NewServer(opts...)
	collabpb.RegisterCollaborationServer(srv, NewServer(u))
	return srv
}

// sender serializes Send calls; the event forwarder and the request loop
// both write to the stream and grpc forbids concurrent SendMsg.
type sender struct {
	mu     sync.Mutex
	stream collabpb.CollaborationCollaborateServer
}

func (s *sender) send(m *collabpb.ServerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.Send(m)
}

func (s *sender) sendError(documentID string, code int32, typ collabpb.ErrorType, err error) error {
	return s.send(&collabpb.ServerMessage{
		DocumentID: documentID,
		Timestamp:  time.Now().UnixMilli(),
		Error: &collabpb.ErrorMessage{
			ErrorCode:    code,
			ErrorMessage: err.Error(),
			ErrorType:    typ,
		},
	})
}

// Collaborate runs one client's session stream.
func (s *Server) Collaborate(stream collabpb.CollaborationCollaborateServer) error {
	out := &sender{stream: stream}

	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if first.JoinDocument == nil {
		out.sendError(first.DocumentID, int32(codes.FailedPrecondition), collabpb.ErrorTypeInvalidUpdate,
			errors.New("first message must be join_document"))
		return nil
	}

	joinEv, err := s.usecases.JoinDocument(stream.Context(), collab.JoinParams{
		ClientID:   first.ClientID,
		DocumentID: first.DocumentID,
		UserID:     first.JoinDocument.UserID,
		UserName:   first.JoinDocument.UserName,
		UserColor:  first.JoinDocument.UserColor,
		Metadata:   first.JoinDocument.UserMetadata,
	})
	if err != nil {
		out.sendError(first.DocumentID, int32(codes.FailedPrecondition), errorType(err), err)
		return nil
	}
	clientID := joinEv.ClientID
	documentID := joinEv.DocumentID

	sub := s.usecases.Broadcaster().Subscribe(documentID, clientID)
	done := make(chan struct{})
	go s.forward(sub, out, done)
	defer func() {
		s.usecases.LeaveDocument(clientID)
		sub.Close()
		<-done
	}()

	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if status.Code(err) == codes.Canceled {
				return nil
			}
			log.WithError(err).WithField("client_id", clientID).Warn("collaboration stream closed")
			return err
		}

		switch {
		case msg.SyncRequest != nil:
			data, err := s.usecases.GetSyncData(clientID, msg.SyncRequest.StateVector)
			if err != nil {
				out.sendError(documentID, int32(codes.InvalidArgument), errorType(err), err)
				continue
			}
			out.send(&collabpb.ServerMessage{
				DocumentID: documentID,
				Timestamp:  time.Now().UnixMilli(),
				SyncResponse: &collabpb.SyncResponse{
					UpdateData:  data.Diff,
					StateVector: data.ServerStateVector,
				},
			})

		case msg.Update != nil:
			if _, err := s.usecases.HandleDocumentUpdate(clientID, msg.Update.UpdateData); err != nil {
				out.sendError(documentID, int32(codes.InvalidArgument), errorType(err), err)
			}

		case msg.Awareness != nil:
			if _, err := s.usecases.HandleAwarenessUpdate(clientID, msg.Awareness.UserInfo, msg.Awareness.AwarenessState); err != nil {
				out.sendError(documentID, int32(codes.InvalidArgument), errorType(err), err)
			}

		case msg.HeartBeat != nil:
			if err := s.usecases.HandleHeartbeat(clientID); err != nil {
				out.sendError(documentID, int32(codes.NotFound), errorType(err), err)
			}

		case msg.LeaveDocument != nil:
			return nil

		case msg.JoinDocument != nil:
			out.sendError(documentID, int32(codes.FailedPrecondition), collabpb.ErrorTypeInvalidUpdate,
				errors.New("already joined"))

		default:
			out.sendError(documentID, int32(codes.InvalidArgument), collabpb.ErrorTypeInvalidUpdate,
				errors.New("empty message"))
		}
	}
}

// forward pushes document events to the stream until the subscription is
// closed. Sync hints stay on the JSON surface and are not forwarded here.
func (s *Server) forward(sub *broadcast.Subscription, out *sender, done chan<- struct{}) {
	defer close(done)
	for ev := range sub.C() {
		msg := toServerMessage(ev)
		if msg == nil {
			continue
		}
		if err := out.send(msg); err != nil {
			return
		}
	}
}

func toServerMessage(ev *event.Event) *collabpb.ServerMessage {
	msg := &collabpb.ServerMessage{
		DocumentID: ev.DocumentID,
		Timestamp:  ev.Timestamp.UnixMilli(),
	}
	switch ev.Type {
	case event.DocumentUpdated:
		msg.Update = &collabpb.UpdateMessage{
			UpdateData:     ev.Update,
			OriginClientID: ev.ClientID,
			SequenceNumber: int64(ev.SequenceNumber),
		}
	case event.AwarenessUpdated:
		msg.Awareness = &collabpb.AwarenessUpdate{
			ClientID:       ev.ClientID,
			UserInfo:       ev.UserInfo,
			AwarenessState: ev.AwarenessState,
			Timestamp:      ev.Timestamp.UnixMilli(),
		}
	case event.UserJoined:
		msg.UserJoined = &collabpb.UserJoined{
			UserID:       ev.UserID,
			UserName:     ev.UserName,
			UserColor:    ev.UserColor,
			ClientID:     ev.ClientID,
			UserMetadata: ev.Metadata,
		}
	case event.UserLeft, event.SessionExpired:
		msg.UserLeft = &collabpb.UserLeft{
			UserID:   ev.UserID,
			ClientID: ev.ClientID,
		}
	default:
		return nil
	}
	return msg
}

func errorType(err error) collabpb.ErrorType {
	switch {
	case errors.Is(err, collab.ErrDocumentNotFound):
		return collabpb.ErrorTypeDocumentNotFound
	case errors.Is(err, collab.ErrInvalidUpdate), errors.Is(err, collab.ErrEmptyID):
		return collabpb.ErrorTypeInvalidUpdate
	case errors.Is(err, collab.ErrSessionNotFound):
		return collabpb.ErrorTypeAuthentication
	case errors.Is(err, collab.ErrDuplicateClient):
		return collabpb.ErrorTypeConnection
	default:
		return collabpb.ErrorTypeUnknown
	}
}

// GetDocumentState returns the document snapshot plus its active users.
func (s *Server) GetDocumentState(ctx context.Context, req *collabpb.GetDocumentStateRequest) (*collabpb.GetDocumentStateResponse, error) {
	state, err := s.usecases.GetDocumentState(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, collab.ErrEmptyID) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &collabpb.GetDocumentStateResponse{
		DocumentState: &collabpb.DocumentState{
			StateVector:  state.StateVector,
			DocumentData: state.Document,
			ActiveUsers:  toActiveUsers(state.ActiveUsers),
			LastModified: state.LastModified.UnixMilli(),
		},
	}, nil
}

// GetActiveUsers lists the fresh sessions on a document.
func (s *Server) GetActiveUsers(ctx context.Context, req *collabpb.GetActiveUsersRequest) (*collabpb.GetActiveUsersResponse, error) {
	if req.DocumentID == "" {
		return nil, status.Error(codes.InvalidArgument, "document id is required")
	}
	return &collabpb.GetActiveUsersResponse{
		ActiveUsers: toActiveUsers(s.usecases.GetActiveUsers(req.DocumentID)),
	}, nil
}

func toActiveUsers(sessions []*session.Session) []*collabpb.ActiveUser {
	users := make([]*collabpb.ActiveUser, 0, len(sessions))
	for _, s := range sessions {
		users = append(users, &collabpb.ActiveUser{
			UserID:    s.UserID,
			UserName:  s.UserName,
			UserColor: s.UserColor,
			ClientID:  s.ClientID,
			LastSeen:  s.LastSeenAt.UnixMilli(),
		})
	}
	return users
}
