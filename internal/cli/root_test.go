package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/triage-ai/ehr-gateway/internal/auth"
	"github.com/triage-ai/ehr-gateway/internal/server"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// echoGateway answers every method with its request and the credential.
type echoGateway struct{}

func (echoGateway) reply(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	cred, err := auth.ExtractCredential(ctx)
	if err != nil || cred != "doctor_secret" {
		return nil, status.Error(codes.Unauthenticated, "authentication failed")
	}
	m := req.AsMap()
	m["method"] = method
	return structpb.NewStruct(m)
}

func (g echoGateway) ListSubjects(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return g.reply(ctx, "ListSubjects", req)
}

func (g echoGateway) GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return g.reply(ctx, "GetRecord", req)
}

func (g echoGateway) Ask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return g.reply(ctx, "Ask", req)
}

func startGateway(t *testing.T) string {
	t.Helper()
	grpcServer := grpc.NewServer()
	server.RegisterDisclosureGatewayServer(grpcServer, echoGateway{})

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		_ = grpcServer.Serve(lis)
	}()
	t.Cleanup(grpcServer.Stop)
	return lis.Addr().String()
}

func executeCLI(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(out.Bytes(), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	return m, nil
}

func TestSubjects(t *testing.T) {
	addr := startGateway(t)
	got, err := executeCLI(t, "--addr", addr, "--password", "doctor_secret", "subjects")
	if err != nil {
		t.Fatalf("subjects: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"method": "ListSubjects"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord(t *testing.T) {
	addr := startGateway(t)
	got, err := executeCLI(t, "--addr", addr, "--password", "doctor_secret", "record", "P001")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	want := map[string]any{"method": "GetRecord", "subject_id": "P001"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAsk_JoinsQuestionAndReadsPasswordFromEnv(t *testing.T) {
	addr := startGateway(t)
	t.Setenv("EHRCTL_PASSWORD", "doctor_secret")
	t.Setenv("EHRCTL_ADDR", addr)

	got, err := executeCLI(t, "ask", "P001", "What", "are", "his", "vitals?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	want := map[string]any{"method": "Ask", "subject_id": "P001", "question": "What are his vitals?"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingPassword(t *testing.T) {
	t.Setenv("EHRCTL_PASSWORD", "")
	_, err := executeCLI(t, "--addr", "localhost:1", "subjects")
	if err == nil || !strings.Contains(err.Error(), "password is required") {
		t.Fatalf("expected password error, got %v", err)
	}
}

func TestWrongPassword(t *testing.T) {
	addr := startGateway(t)
	_, err := executeCLI(t, "--addr", addr, "--password", "wrong", "subjects")
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestAsk_RequiresQuestion(t *testing.T) {
	if _, err := executeCLI(t, "--password", "x", "ask", "P001"); err == nil {
		t.Fatal("expected argument error")
	}
}
