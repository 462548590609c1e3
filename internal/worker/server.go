// Package worker serves the record tools over newline-delimited JSON-RPC.
// Every tools/call is authorized before the store is touched.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/triage-ai/ehr-gateway/internal/auth"
	"github.com/triage-ai/ehr-gateway/internal/mcp"
	"github.com/triage-ai/ehr-gateway/internal/normalize"
	"github.com/triage-ai/ehr-gateway/internal/registry"
	"go.uber.org/zap"
)

const maxLineBytes = 1024 * 1024

var (
	ErrUnknownTool = errors.New("unknown tool")
	errBadArgument = errors.New("invalid argument")
)

// ServerInfo is announced in the initialize result.
var ServerInfo = mcp.Implementation{Name: "ehr-worker", Version: "1.0.0"}

// Server dispatches protocol requests to the record tools.
type Server struct {
	gate     auth.Gate
	records  Records
	registry *registry.Registry
	logger   *zap.Logger
}

// NewServer creates a Server. A nil registry means registry.Default().
func NewServer(gate auth.Gate, records Records, reg *registry.Registry, logger *zap.Logger) *Server {
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		gate:     gate,
		records:  records,
		registry: reg,
		logger:   logger,
	}
}

// Serve reads requests from r until EOF and writes one response line per
// request to w. Notifications get no response.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req mcp.Request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := writeResponse(bw, mcp.Response{
				JSONRPC: "2.0",
				Error:   &mcp.RPCError{Code: mcp.CodeParseError, Message: "parse error"},
			}); err != nil {
				return fmt.Errorf("Serve: %w", err)
			}
			continue
		}

		if req.IsNotification() {
			s.logger.Debug("notification received", zap.String("method", req.Method))
			continue
		}

		if err := writeResponse(bw, s.dispatch(ctx, req)); err != nil {
			return fmt.Errorf("Serve: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("Serve: read: %w", err)
	}
	return nil
}

func writeResponse(bw *bufio.Writer, resp mcp.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if _, err := bw.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return bw.Flush()
}

func (s *Server) dispatch(ctx context.Context, req mcp.Request) mcp.Response {
	base := mcp.Response{JSONRPC: "2.0", ID: req.ID}

	if req.JSONRPC != "2.0" {
		base.Error = &mcp.RPCError{Code: mcp.CodeInvalidRequest, Message: "invalid request: jsonrpc must be 2.0"}
		return base
	}

	switch req.Method {
	case mcp.MethodInitialize:
		base.Result = mustMarshal(mcp.InitializeResult{
			ProtocolVersion: mcp.ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{"listChanged": false}},
			ServerInfo:      ServerInfo,
		})

	case mcp.MethodPing:
		base.Result = json.RawMessage(`{}`)

	case mcp.MethodToolsList:
		base.Result = mustMarshal(s.listTools())

	case mcp.MethodToolsCall:
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			base.Error = &mcp.RPCError{Code: mcp.CodeInvalidParams, Message: "invalid params: " + err.Error()}
			return base
		}
		base.Result = mustMarshal(s.callTool(ctx, params))

	default:
		base.Error = &mcp.RPCError{Code: mcp.CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
	return base
}

func (s *Server) listTools() mcp.ListToolsResult {
	defs := s.registry.List()
	tools := make([]mcp.Tool, len(defs))
	for i, td := range defs {
		tools[i] = mcp.Tool{
			Name:        td.Name,
			Description: td.Description,
			InputSchema: td.InputSchema,
		}
	}
	return mcp.ListToolsResult{Tools: tools}
}

func (s *Server) callTool(ctx context.Context, params mcp.CallToolParams) mcp.CallToolResult {
	start := time.Now()

	content, err := s.runTool(ctx, params.Name, params.Arguments)
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		s.logger.Info("tool call failed",
			zap.String("tool_name", params.Name),
			zap.Float64("latency_ms", latencyMs),
			zap.Error(err),
		)
		return mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent(fmt.Sprintf("%s %s: %v", normalize.Marker, params.Name, err))},
			IsError: true,
		}
	}

	s.logger.Debug("tool call served",
		zap.String("tool_name", params.Name),
		zap.Int("chunks", len(content)),
		zap.Float64("latency_ms", latencyMs),
	)
	return mcp.CallToolResult{Content: content}
}

// runTool authorizes first, then validates arguments, then reads.
func (s *Server) runTool(ctx context.Context, name string, args map[string]any) ([]mcp.Content, error) {
	password, _ := args["password"].(string)
	if err := s.gate.Authorize(ctx, password, name); err != nil {
		return nil, err
	}

	td := s.registry.GetTool(name)
	if td == nil {
		return nil, ErrUnknownTool
	}
	if err := td.Validate(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadArgument, err)
	}

	subjectID, _ := args["subject_id"].(string)
	limit := td.DefaultLimit
	if v, ok := args["limit"].(float64); ok {
		limit = int(v)
	}

	switch name {
	case registry.ToolListSubjects:
		ids, err := s.records.ListSubjects(ctx)
		if err != nil {
			return nil, err
		}
		content := make([]mcp.Content, len(ids))
		for i, id := range ids {
			content[i] = mcp.TextContent(id)
		}
		return content, nil

	case registry.ToolGetIdentity:
		identity, err := s.records.GetIdentity(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		if identity == nil {
			return []mcp.Content{mcp.TextContent("{}")}, nil
		}
		return jsonChunks([]any{identity})

	case registry.ToolGetReadings:
		readings, err := s.records.GetReadings(ctx, subjectID, limit)
		if err != nil {
			return nil, err
		}
		return jsonChunks(readings)

	case registry.ToolGetMedications:
		meds, err := s.records.GetMedications(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		return jsonChunks(meds)

	case registry.ToolGetHistory:
		entries, err := s.records.GetHistory(ctx, subjectID, limit)
		if err != nil {
			return nil, err
		}
		return jsonChunks(entries)

	default:
		return nil, ErrUnknownTool
	}
}

// jsonChunks renders one JSON text chunk per element.
func jsonChunks[T any](items []T) ([]mcp.Content, error) {
	content := make([]mcp.Content, len(items))
	for i, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		content[i] = mcp.TextContent(string(b))
	}
	return content, nil
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("worker: marshal %T: %v", v, err))
	}
	return b
}
