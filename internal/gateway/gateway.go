// Package gateway orchestrates record retrieval for clinicians and the
// minimal-disclosure question flow for the language model.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/triage-ai/ehr-gateway/internal/auth"
	"github.com/triage-ai/ehr-gateway/internal/llm"
	"github.com/triage-ai/ehr-gateway/internal/mcp"
	"github.com/triage-ai/ehr-gateway/internal/normalize"
	"github.com/triage-ai/ehr-gateway/internal/registry"
	"go.uber.org/zap"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoConsumer      = errors.New("no answer consumer configured")
)

// Config holds per-call limits.
type Config struct {
	ReadingsLimit int
	HistoryLimit  int
	CallTimeout   time.Duration
	Now           func() time.Time
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		ReadingsLimit: registry.DefaultReadingsLimit,
		HistoryLimit:  registry.DefaultHistoryLimit,
		CallTimeout:   10 * time.Second,
		Now:           time.Now,
	}
}

// Gateway talks to a fresh worker for every tool call.
type Gateway struct {
	dialer   mcp.Dialer
	consumer llm.Consumer
	cfg      Config
	logger   *zap.Logger
}

// New creates a Gateway. consumer may be nil, in which case Ask fails with
// ErrNoConsumer. Zero config fields take their defaults.
func New(dialer mcp.Dialer, consumer llm.Consumer, cfg Config, logger *zap.Logger) *Gateway {
	def := DefaultConfig()
	if cfg.ReadingsLimit <= 0 {
		cfg.ReadingsLimit = def.ReadingsLimit
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		dialer:   dialer,
		consumer: consumer,
		cfg:      cfg,
		logger:   logger,
	}
}

// safeCall runs one tool on a fresh session and normalizes its result.
// The credential is forwarded as the tool's password argument; an empty
// credential is refused without starting a worker.
func (g *Gateway) safeCall(ctx context.Context, credential, tool string, parseJSON bool, args map[string]any) (any, error) {
	if credential == "" {
		return nil, auth.ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	callArgs := make(map[string]any, len(args)+1)
	for k, v := range args {
		callArgs[k] = v
	}
	callArgs["password"] = credential

	sess, err := mcp.Open(ctx, g.dialer, g.logger)
	if err != nil {
		return nil, transportError(tool, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			g.logger.Debug("worker session close", zap.String("tool_name", tool), zap.Error(err))
		}
	}()

	raw, err := sess.CallTool(ctx, tool, callArgs)
	if err != nil {
		return nil, transportError(tool, err)
	}

	data, err := normalize.Normalize(raw, parseJSON)
	if err != nil {
		var toolErr *normalize.ToolExecutionError
		if errors.As(err, &toolErr) && isUnauthorized(toolErr.Message) {
			return nil, auth.ErrUnauthorized
		}
		return nil, err
	}
	return data, nil
}

func transportError(tool string, err error) error {
	return &normalize.ToolExecutionError{
		Message: fmt.Sprintf("%s %s: %v", normalize.Marker, tool, err),
		Err:     err,
	}
}

func isUnauthorized(msg string) bool {
	return strings.HasSuffix(msg, ": "+auth.ErrUnauthorized.Error())
}
