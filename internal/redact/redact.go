// Package redact derives the identity-free summary of a subject. Only
// derived attributes leave this package; names, identifiers and the date
// of birth never do.
package redact

import (
	"strings"
	"time"
)

// dobLayout accepts YYYY-MM-DD with or without zero padding.
const dobLayout = "2006-1-2"

// Summary is the only demographic data handed downstream.
type Summary struct {
	Age *int   `json:"age,omitempty"`
	Sex string `json:"sex,omitempty"`
}

// Age returns the full years elapsed between dob and now. ok is false when
// dob is empty, unparsable or later than now.
func Age(dob string, now time.Time) (age int, ok bool) {
	dob = strings.TrimSpace(dob)
	if dob == "" {
		return 0, false
	}
	birth, err := time.Parse(dobLayout, dob)
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if birth.After(today) {
		return 0, false
	}

	age = now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age, true
}

// Summarize builds the summary from a decoded identity record. Keys other
// than "dob" and "sex" are ignored.
func Summarize(identity map[string]any, now time.Time) Summary {
	var s Summary
	if dob, ok := identity["dob"].(string); ok {
		if age, ok := Age(dob, now); ok {
			s.Age = &age
		}
	}
	if sex, ok := identity["sex"].(string); ok {
		s.Sex = sex
	}
	return s
}

// Map returns the summary as a plain object with undefined fields omitted.
func (s Summary) Map() map[string]any {
	m := make(map[string]any, 2)
	if s.Age != nil {
		m["age"] = *s.Age
	}
	if s.Sex != "" {
		m["sex"] = s.Sex
	}
	return m
}
