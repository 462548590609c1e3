package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/triage-ai/ehr-gateway/internal/disclosure"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	reply    string
	err      error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func TestBuildPrompt(t *testing.T) {
	dc := disclosure.Context{disclosure.CategoryInfo: map[string]any{"age": 34, "sex": "F"}}
	p, err := BuildPrompt("hello", dc)
	if err != nil {
		t.Fatal(err)
	}
	if p.Context != `PATIENT_CONTEXT = {"info":{"age":34,"sex":"F"}}` {
		t.Fatalf("unexpected context message: %s", p.Context)
	}
	if p.Question != "hello" || !strings.Contains(p.System, "PATIENT_CONTEXT") {
		t.Fatalf("unexpected prompt: %+v", p)
	}
}

func TestBuildPrompt_EmptyQuestion(t *testing.T) {
	if _, err := BuildPrompt("  ", disclosure.Context{}); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestGenAIConsumer_Answer(t *testing.T) {
	fm := &fakeModels{reply: "  Consider an HbA1c.  "}
	c := newGenAIConsumer(fm, "", 0.6, nil)

	dc := disclosure.Context{disclosure.CategoryMedications: []any{map[string]any{"drug": "Metformin"}}}
	answer, err := c.Answer(context.Background(), "What meds?", dc)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "Consider an HbA1c." {
		t.Fatalf("unexpected answer %q", answer)
	}

	if fm.model != DefaultModel {
		t.Fatalf("expected default model, got %q", fm.model)
	}
	if len(fm.contents) != 1 || fm.contents[0].Role != genai.RoleUser {
		t.Fatalf("expected the question as the only user content, got %d", len(fm.contents))
	}
	if got := fm.contents[0].Parts[0].Text; got != "What meds?" {
		t.Fatalf("unexpected question content: %s", got)
	}
	if fm.config.Temperature == nil || *fm.config.Temperature != 0.6 {
		t.Fatalf("unexpected temperature: %v", fm.config.Temperature)
	}
	sys := fm.config.SystemInstruction
	if sys == nil || len(sys.Parts) != 2 {
		t.Fatal("system instruction not set")
	}
	if sys.Parts[0].Text != SystemInstruction {
		t.Fatalf("unexpected instruction part: %s", sys.Parts[0].Text)
	}
	if got := sys.Parts[1].Text; got != `PATIENT_CONTEXT = {"medications":[{"drug":"Metformin"}]}` {
		t.Fatalf("unexpected context part: %s", got)
	}
}

func TestGenAIConsumer_Errors(t *testing.T) {
	c := newGenAIConsumer(&fakeModels{reply: ""}, "m", 0, nil)
	if _, err := c.Answer(context.Background(), "hi", disclosure.Context{}); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}

	boom := errors.New("quota exceeded")
	c = newGenAIConsumer(&fakeModels{err: boom}, "m", 0, nil)
	if _, err := c.Answer(context.Background(), "hi", disclosure.Context{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestNewGenAIConsumer_RequiresKey(t *testing.T) {
	if _, err := NewGenAIConsumer(context.Background(), "", "", 0.6, nil); err == nil {
		t.Fatal("expected error without API key")
	}
}
