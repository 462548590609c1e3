package gateway

import (
	"context"
	"fmt"

	"github.com/triage-ai/ehr-gateway/internal/normalize"
	"github.com/triage-ai/ehr-gateway/internal/registry"
)

// Record is the clinician view of one subject. Each category holds the
// normalized tool output: a single element is a scalar, several are a list.
type Record struct {
	Info        map[string]any `json:"info"`
	Readings    any            `json:"readings"`
	Medications any            `json:"medications"`
	History     any            `json:"history"`
}

// ListSubjects returns every subject id.
func (g *Gateway) ListSubjects(ctx context.Context, credential string) ([]string, error) {
	data, err := g.safeCall(ctx, credential, registry.ToolListSubjects, false, nil)
	if err != nil {
		return nil, fmt.Errorf("ListSubjects: %w", err)
	}
	items := normalize.AsList(data)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = fmt.Sprint(item)
	}
	return ids, nil
}

// Identity returns the raw identity record. An unknown subject yields an
// empty map.
func (g *Gateway) Identity(ctx context.Context, credential, subjectID string) (map[string]any, error) {
	data, err := g.safeCall(ctx, credential, registry.ToolGetIdentity, true, subjectArgs(subjectID))
	if err != nil {
		return nil, fmt.Errorf("Identity: %w", err)
	}
	identity, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("Identity: %w", &normalize.ToolExecutionError{
			Message: fmt.Sprintf("unexpected identity payload of type %T", data),
		})
	}
	return identity, nil
}

func (g *Gateway) Readings(ctx context.Context, credential, subjectID string) (any, error) {
	args := subjectArgs(subjectID)
	args["limit"] = g.cfg.ReadingsLimit
	data, err := g.safeCall(ctx, credential, registry.ToolGetReadings, true, args)
	if err != nil {
		return nil, fmt.Errorf("Readings: %w", err)
	}
	return data, nil
}

func (g *Gateway) Medications(ctx context.Context, credential, subjectID string) (any, error) {
	data, err := g.safeCall(ctx, credential, registry.ToolGetMedications, true, subjectArgs(subjectID))
	if err != nil {
		return nil, fmt.Errorf("Medications: %w", err)
	}
	return data, nil
}

func (g *Gateway) History(ctx context.Context, credential, subjectID string) (any, error) {
	args := subjectArgs(subjectID)
	args["limit"] = g.cfg.HistoryLimit
	data, err := g.safeCall(ctx, credential, registry.ToolGetHistory, true, args)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return data, nil
}

// Record fetches all four categories. The first failure aborts the rest.
func (g *Gateway) Record(ctx context.Context, credential, subjectID string) (*Record, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("Record: %w: subject_id is required", ErrInvalidArgument)
	}

	info, err := g.Identity(ctx, credential, subjectID)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}
	readings, err := g.Readings(ctx, credential, subjectID)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}
	meds, err := g.Medications(ctx, credential, subjectID)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}
	history, err := g.History(ctx, credential, subjectID)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	return &Record{
		Info:        info,
		Readings:    readings,
		Medications: meds,
		History:     history,
	}, nil
}

func subjectArgs(subjectID string) map[string]any {
	return map[string]any{"subject_id": subjectID}
}
