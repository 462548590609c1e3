package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const helperEnv = "EHR_MCP_HELPER_PROCESS"

// TestHelperProcess is not a real test. It is re-executed by the dialer
// tests to act as a subprocess server.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	fmt.Fprintln(os.Stderr, "helper started")
	if err := fakeServe(context.Background(), os.Stdin, os.Stdout); err != nil {
		os.Exit(2)
	}
	os.Exit(0)
}

func helperDialer() CommandDialer {
	return CommandDialer{
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$"},
		Env:  append(os.Environ(), helperEnv+"=1"),
	}
}

func TestCommandDialer_RoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, err := Open(context.Background(), helperDialer(), zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	raw, err := s.CallTool(context.Background(), "echo", map[string]any{"limit": 3})
	if err != nil {
		_ = s.Close()
		t.Fatalf("CallTool: %v", err)
	}
	var res CallToolResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Content) != 1 || res.Content[0].Text != `{"limit":3}` {
		t.Fatalf("unexpected result: %+v", res)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCommandDialer_MissingBinary(t *testing.T) {
	_, err := CommandDialer{Path: "/nonexistent/ehr-worker"}.Dial(context.Background())
	if err == nil {
		t.Fatal("expected start failure")
	}
}

func TestCommandDialer_EmptyPath(t *testing.T) {
	if _, err := (CommandDialer{}).Dial(context.Background()); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestCommandDialer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := helperDialer().Dial(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
