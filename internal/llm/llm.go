// Package llm hands a disclosure context and a question to a language
// model and returns its answer.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/triage-ai/ehr-gateway/internal/disclosure"
)

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("llm: empty answer")

// Consumer answers a question from a disclosure context.
type Consumer interface {
	Answer(ctx context.Context, question string, dc disclosure.Context) (string, error)
}

// SystemInstruction constrains the model to the supplied context.
const SystemInstruction = `You are a clinical assistant supporting a doctor during a consultation.
Base every suggestion strictly on PATIENT_CONTEXT.

You may:
- interpret the demographic summary, vitals, medications and history provided;
- point out findings the doctor should consider;
- suggest follow-up questions for the patient;
- recommend investigations or diagnostic tests;
- offer differential diagnoses and next clinical steps with reference to current standards of care.

Constraints:
- Use only information contained in PATIENT_CONTEXT.
- If the data is insufficient to draw a conclusion, say so.
- Do not guess, and do not invent symptoms or conditions the data does not support.
- Group suggestions by category (questions, investigations, possible diagnoses, treatment options) and keep them concise.
- Prioritize clinical safety.`

// Prompt is the payload sent downstream.
type Prompt struct {
	System   string
	Context  string // "PATIENT_CONTEXT = <json>"
	Question string
}

// BuildPrompt serializes dc into the context message.
func BuildPrompt(question string, dc disclosure.Context) (Prompt, error) {
	if strings.TrimSpace(question) == "" {
		return Prompt{}, fmt.Errorf("BuildPrompt: empty question")
	}
	if dc == nil {
		dc = disclosure.Context{}
	}
	b, err := json.Marshal(dc)
	if err != nil {
		return Prompt{}, fmt.Errorf("BuildPrompt: marshal context: %w", err)
	}
	return Prompt{
		System:   SystemInstruction,
		Context:  "PATIENT_CONTEXT = " + string(b),
		Question: question,
	}, nil
}
