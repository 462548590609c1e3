package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxLineBytes         = 1024 * 1024
	defaultShutdownGrace = 2 * time.Second
)

// ErrSessionClosed is returned for calls that cannot complete because the
// server's output stream ended.
var ErrSessionClosed = errors.New("mcp: session closed")

// ClientInfo identifies the gateway in the initialize handshake.
var ClientInfo = Implementation{Name: "ehr-gateway", Version: "1.0.0"}

// Session is a single client connection to one server instance. It is
// torn down by Close and is not reusable.
type Session struct {
	logger *zap.Logger
	tr     *Transport
	grace  time.Duration

	mu      sync.Mutex
	pending map[int64]chan *Response
	nextID  int64
	server  *InitializeResult

	writeMu sync.Mutex
	done    chan struct{} // closed when stdout reaches EOF
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Open dials a fresh server and performs the initialize handshake followed
// by the initialized notification. The session is closed on any failure.
func Open(ctx context.Context, d Dialer, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tr, err := d.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	s := &Session{
		logger:  logger,
		tr:      tr,
		grace:   defaultShutdownGrace,
		pending: make(map[int64]chan *Response),
		nextID:  1,
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.readStdout()
	if tr.Stderr != nil {
		s.wg.Add(1)
		go s.readStderr()
	}

	if _, err := s.initialize(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	return s, nil
}

func (s *Session) initialize(ctx context.Context) (*InitializeResult, error) {
	raw, err := s.call(ctx, MethodInitialize, InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      ClientInfo,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	var res InitializeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("initialize: decode result: %w", err)
	}
	if err := s.notify(MethodInitialized); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	s.mu.Lock()
	s.server = &res
	s.mu.Unlock()
	return &res, nil
}

// ServerInfo returns the handshake result.
func (s *Session) ServerInfo() *InitializeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server
}

// ListTools returns the server's tool catalogue.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	raw, err := s.call(ctx, MethodToolsList, nil)
	if err != nil {
		return nil, fmt.Errorf("ListTools: %w", err)
	}
	var res ListToolsResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("ListTools: decode result: %w", err)
	}
	return res.Tools, nil
}

// CallTool invokes one tool and returns the raw result body. Tool-level
// failures arrive inside the body, protocol failures as *RPCError.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	raw, err := s.call(ctx, MethodToolsCall, CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("CallTool %s: %w", name, err)
	}
	return raw, nil
}

func (s *Session) Ping(ctx context.Context) error {
	if _, err := s.call(ctx, MethodPing, nil); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

func (s *Session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := Request{JSONRPC: "2.0", Method: method}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = b
	}

	ch := make(chan *Response, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.pending[id] = ch
	s.mu.Unlock()
	req.ID = id

	if err := s.write(req); err != nil {
		s.forget(id)
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-s.done:
		s.forget(id)
		return nil, ErrSessionClosed
	case <-ctx.Done():
		s.forget(id)
		return nil, ctx.Err()
	}
}

func (s *Session) notify(method string) error {
	return s.write(Request{JSONRPC: "2.0", Method: method})
}

func (s *Session) write(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.tr.Stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

func (s *Session) forget(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Session) readStdout() {
	defer s.wg.Done()
	defer close(s.done)

	scanner := bufio.NewScanner(s.tr.Stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			s.logger.Warn("dropping unparsable line from worker", zap.Error(err))
			continue
		}

		id, ok := responseID(resp.ID)
		if !ok {
			s.logger.Debug("ignoring worker message without numeric id")
			continue
		}

		s.mu.Lock()
		ch, exists := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()

		if !exists {
			s.logger.Warn("response for unknown request", zap.Int64("id", id))
			continue
		}
		ch <- &resp
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, ErrKilled) {
		s.logger.Debug("worker stdout closed", zap.Error(err))
	}
}

func (s *Session) readStderr() {
	defer s.wg.Done()
	scanner := bufio.NewScanner(s.tr.Stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		s.logger.Debug("worker stderr", zap.String("line", scanner.Text()))
	}
}

// Close ends the session: stdin is closed so the server can exit on its
// own, and it is killed if it has not done so within the grace period.
// Reader goroutines are joined before Close returns.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.tr.Stdin.Close()

		readers := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(readers)
		}()

		select {
		case <-readers:
		case <-time.After(s.grace):
			s.logger.Warn("worker did not exit after stdin closed; killing")
			_ = s.tr.Kill()
			<-readers
		}

		if err := s.tr.Wait(); err != nil {
			s.closeErr = fmt.Errorf("Close: %w", err)
		}
	})
	return s.closeErr
}

func responseID(v any) (int64, bool) {
	switch id := v.(type) {
	case float64:
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	default:
		return 0, false
	}
}
