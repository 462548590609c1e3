package disclosure

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleFetched() Fetched {
	return Fetched{
		Info:        map[string]any{"age": 34, "sex": "F"},
		Readings:    []any{map[string]any{"bp": "120/80"}},
		Medications: map[string]any{"drug": "Metformin", "stop": "ongoing"},
		History:     []any{},
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		question string
		want     []Category
	}{
		{"What are his vitals and meds?", []Category{CategoryReadings, CategoryMedications}},
		{"hello", []Category{CategoryInfo}},
		{"", []Category{CategoryInfo}},
		{"How old? What AGE and SEX?", []Category{CategoryInfo}},
		{"Any surgery or smoking history?", []Category{CategoryHistory}},
		{"Latest BP and heart rate", []Category{CategoryReadings}},
		{"Which drugs were prescribed?", []Category{CategoryMedications}},
		// Substring matching: "temperature" hits "temp", "message" hits "age".
		{"temperature trend", []Category{CategoryReadings}},
		{"leave a message", []Category{CategoryInfo}},
		{"demographics, weight, prescriptions, history", []Category{CategoryInfo, CategoryReadings, CategoryMedications, CategoryHistory}},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Categories(tt.question)); diff != "" {
				t.Fatalf("Categories(%q) mismatch (-want +got):\n%s", tt.question, diff)
			}
		})
	}
}

func TestSelect_VitalsAndMeds(t *testing.T) {
	fetched := sampleFetched()
	got := Select("What are his vitals and meds?", fetched)

	want := Context{
		CategoryReadings:    fetched.Readings,
		CategoryMedications: fetched.Medications,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_FallbackIsInfoOnly(t *testing.T) {
	fetched := sampleFetched()
	got := Select("hello", fetched)

	want := Context{CategoryInfo: fetched.Info}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_DeterministicAndBounded(t *testing.T) {
	allowed := map[Category]bool{}
	for _, c := range AllCategories {
		allowed[c] = true
	}

	questions := []string{"hello", "vitals", "meds and history", "AGE", "xyz", "smoker with high bp on new drug"}
	for _, q := range questions {
		first := Select(q, sampleFetched())
		second := Select(q, sampleFetched())
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%q: non-deterministic selection:\n%s", q, diff)
		}
		if len(first) == 0 {
			t.Fatalf("%q: empty context", q)
		}
		for c := range first {
			if !allowed[c] {
				t.Fatalf("%q: unexpected category %q", q, c)
			}
		}
	}
}

func TestContext_Keys(t *testing.T) {
	ctx := Context{CategoryHistory: nil, CategoryInfo: 1}
	if diff := cmp.Diff([]Category{CategoryInfo, CategoryHistory}, ctx.Keys()); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"info", "history"}, Strings(ctx.Keys())); diff != "" {
		t.Fatal(diff)
	}
}
