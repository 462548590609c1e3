package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/triage-ai/ehr-gateway/internal/disclosure"
	"github.com/triage-ai/ehr-gateway/internal/redact"
	"go.uber.org/zap"
)

// Answer is the result of one question.
type Answer struct {
	RequestID  string
	Text       string
	Categories []disclosure.Category
}

// Ask fetches the subject's record, reduces the identity to its summary,
// masks identifiers left in free text, selects the categories the question
// needs and hands only those to the consumer. Any fetch failure aborts
// before the consumer is called.
func (g *Gateway) Ask(ctx context.Context, credential, subjectID, question string) (*Answer, error) {
	if g.consumer == nil {
		return nil, fmt.Errorf("Ask: %w", ErrNoConsumer)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("Ask: %w: question is required", ErrInvalidArgument)
	}

	requestID := uuid.New().String()

	rec, err := g.Record(ctx, credential, subjectID)
	if err != nil {
		g.logger.Info("ask aborted",
			zap.String("request_id", requestID),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("Ask: %w", err)
	}

	summary := redact.Summarize(rec.Info, g.cfg.Now())
	scrubber := redact.NewScrubber(rec.Info)
	dc := disclosure.Select(question, disclosure.Fetched{
		Info:        summary.Map(),
		Readings:    scrubber.Scrub(rec.Readings),
		Medications: scrubber.Scrub(rec.Medications),
		History:     scrubber.Scrub(rec.History),
	})
	cats := dc.Keys()

	g.logger.Info("disclosing context",
		zap.String("request_id", requestID),
		zap.String("subject_id", subjectID),
		zap.Strings("categories", disclosure.Strings(cats)),
		zap.Any("redactions", scrubber.Hits()),
	)

	text, err := g.consumer.Answer(ctx, question, dc)
	if err != nil {
		return nil, fmt.Errorf("Ask: %w", err)
	}

	return &Answer{
		RequestID:  requestID,
		Text:       text,
		Categories: cats,
	}, nil
}
