// Package server exposes the gateway as the DisclosureGateway gRPC service.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/triage-ai/ehr-gateway/internal/auth"
	"github.com/triage-ai/ehr-gateway/internal/disclosure"
	"github.com/triage-ai/ehr-gateway/internal/gateway"
	"github.com/triage-ai/ehr-gateway/internal/normalize"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Gateway is the subset of *gateway.Gateway served here.
type Gateway interface {
	ListSubjects(ctx context.Context, credential string) ([]string, error)
	Record(ctx context.Context, credential, subjectID string) (*gateway.Record, error)
	Ask(ctx context.Context, credential, subjectID, question string) (*gateway.Answer, error)
}

// DisclosureServer implements DisclosureGatewayServer.
type DisclosureServer struct {
	gateway Gateway
	logger  *zap.Logger
}

// NewDisclosureServer creates a new DisclosureServer with the given dependencies.
func NewDisclosureServer(gw Gateway, logger *zap.Logger) *DisclosureServer {
	return &DisclosureServer{
		gateway: gw,
		logger:  logger,
	}
}

// ListSubjects implements DisclosureGateway.ListSubjects.
func (s *DisclosureServer) ListSubjects(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()

	credential, err := auth.ExtractCredential(ctx)
	if err != nil {
		return nil, s.fail("ListSubjects", err)
	}

	ids, err := s.gateway.ListSubjects(ctx, credential)
	if err != nil {
		return nil, s.fail("ListSubjects", err)
	}

	subjects := make([]any, len(ids))
	for i, id := range ids {
		subjects[i] = id
	}
	s.served("ListSubjects", start)
	return toStruct(map[string]any{"subjects": subjects})
}

// GetRecord implements DisclosureGateway.GetRecord.
func (s *DisclosureServer) GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()

	credential, err := auth.ExtractCredential(ctx)
	if err != nil {
		return nil, s.fail("GetRecord", err)
	}

	subjectID := stringField(req, "subject_id")
	if subjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}

	rec, err := s.gateway.Record(ctx, credential, subjectID)
	if err != nil {
		return nil, s.fail("GetRecord", err)
	}

	s.served("GetRecord", start)
	return toStruct(map[string]any{
		"info":        rec.Info,
		"readings":    rec.Readings,
		"medications": rec.Medications,
		"history":     rec.History,
	})
}

// Ask implements DisclosureGateway.Ask.
func (s *DisclosureServer) Ask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()

	credential, err := auth.ExtractCredential(ctx)
	if err != nil {
		return nil, s.fail("Ask", err)
	}

	subjectID := stringField(req, "subject_id")
	question := stringField(req, "question")
	if subjectID == "" || strings.TrimSpace(question) == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id and question are required")
	}

	ans, err := s.gateway.Ask(ctx, credential, subjectID, question)
	if err != nil {
		return nil, s.fail("Ask", err)
	}

	cats := disclosure.Strings(ans.Categories)
	categories := make([]any, len(cats))
	for i, c := range cats {
		categories[i] = c
	}
	s.served("Ask", start)
	return toStruct(map[string]any{
		"request_id": ans.RequestID,
		"answer":     ans.Text,
		"categories": categories,
	})
}

func (s *DisclosureServer) served(method string, start time.Time) {
	s.logger.Debug("request served",
		zap.String("method", method),
		zap.Float64("latency_ms", float64(time.Since(start))/float64(time.Millisecond)),
	)
}

func (s *DisclosureServer) fail(method string, err error) error {
	st := toStatus(err)
	s.logger.Info("request failed",
		zap.String("method", method),
		zap.String("code", st.Code().String()),
		zap.Error(err),
	)
	return st.Err()
}

// toStatus maps gateway errors onto gRPC status codes. Authorization
// failures never carry detail.
func toStatus(err error) *status.Status {
	var toolErr *normalize.ToolExecutionError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return status.New(codes.Unauthenticated, "authentication failed")
	case errors.Is(err, gateway.ErrInvalidArgument):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, gateway.ErrNoConsumer):
		return status.New(codes.FailedPrecondition, gateway.ErrNoConsumer.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.As(err, &toolErr):
		return status.New(codes.Internal, toolErr.Message)
	default:
		return status.New(codes.Internal, err.Error())
	}
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

var _ DisclosureGatewayServer = (*DisclosureServer)(nil)
