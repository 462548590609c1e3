package redact

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAge_BirthdayBoundary(t *testing.T) {
	tests := []struct {
		name string
		dob  string
		now  time.Time
		want int
	}{
		{"day before birthday", "1990-06-15", date(2024, time.June, 14), 33},
		{"on birthday", "1990-06-15", date(2024, time.June, 15), 34},
		{"earlier month", "1990-06-15", date(2024, time.May, 30), 33},
		{"later month", "1990-06-15", date(2024, time.July, 1), 34},
		{"leap day before", "2000-02-29", date(2023, time.February, 28), 22},
		{"leap day after", "2000-02-29", date(2023, time.March, 1), 23},
		{"born today", "2024-06-15", date(2024, time.June, 15), 0},
		{"unpadded", "1986-3-4", date(2024, time.March, 3), 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Age(tt.dob, tt.now)
			if !ok {
				t.Fatalf("expected age for %q", tt.dob)
			}
			if got != tt.want {
				t.Fatalf("Age(%q, %s) = %d, want %d", tt.dob, tt.now.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestAge_Undefined(t *testing.T) {
	for _, dob := range []string{"", "   ", "15/06/1990", "1990-13-01", "yesterday"} {
		if _, ok := Age(dob, date(2024, time.June, 15)); ok {
			t.Fatalf("expected no age for %q", dob)
		}
	}
}

func TestAge_FutureBirthIsUndefined(t *testing.T) {
	now := date(2024, time.June, 15)
	for _, dob := range []string{"2024-06-16", "2025-01-01", "2100-6-15"} {
		if age, ok := Age(dob, now); ok {
			t.Fatalf("expected no age for future dob %q, got %d", dob, age)
		}
	}

	// Same calendar day counts as born today in any zone.
	east := time.Date(2024, time.June, 15, 0, 30, 0, 0, time.FixedZone("UTC+5", 5*3600))
	if age, ok := Age("2024-06-15", east); !ok || age != 0 {
		t.Fatalf("expected age 0 on birth date, got %d ok=%v", age, ok)
	}
}

func TestSummarize(t *testing.T) {
	now := date(2024, time.June, 15)
	age34 := 34

	tests := []struct {
		name     string
		identity map[string]any
		want     Summary
	}{
		{
			name: "full record",
			identity: map[string]any{
				"id": "P001", "first_name": "Ada", "last_name": "Obi", "sex": "F", "dob": "1990-06-15",
			},
			want: Summary{Age: &age34, Sex: "F"},
		},
		{
			name:     "missing dob omits age",
			identity: map[string]any{"id": "P002", "sex": "M", "dob": nil},
			want:     Summary{Sex: "M"},
		},
		{
			name:     "bad dob omits age",
			identity: map[string]any{"sex": "M", "dob": "unknown"},
			want:     Summary{Sex: "M"},
		},
		{
			name:     "future dob omits age",
			identity: map[string]any{"sex": "F", "dob": "2030-01-01"},
			want:     Summary{Sex: "F"},
		},
		{
			name:     "unknown subject",
			identity: map[string]any{},
			want:     Summary{},
		},
		{
			name:     "nil record",
			identity: nil,
			want:     Summary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.identity, now)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Summarize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSummarize_NeverCarriesIdentifiers(t *testing.T) {
	identity := map[string]any{
		"id": "P001", "first_name": "Ada", "last_name": "Obi", "sex": "F", "dob": "1990-06-15",
		"phone": "555-0100",
	}
	s := Summarize(identity, date(2024, time.June, 15))

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var encoded map[string]any
	if err := json.Unmarshal(b, &encoded); err != nil {
		t.Fatal(err)
	}

	for _, m := range []map[string]any{encoded, s.Map()} {
		for key := range m {
			if key != "age" && key != "sex" {
				t.Fatalf("summary leaked key %q", key)
			}
		}
		for _, v := range m {
			if v == "Ada" || v == "Obi" || v == "P001" || v == "1990-06-15" {
				t.Fatalf("summary leaked value %v", v)
			}
		}
	}
}

func TestSummary_OmitsUndefined(t *testing.T) {
	b, err := json.Marshal(Summary{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Fatalf("expected {}, got %s", b)
	}
	if diff := cmp.Diff(map[string]any{}, Summary{}.Map()); diff != "" {
		t.Fatal(diff)
	}
}
