// Package disclosure selects the smallest set of record categories a
// question needs. When nothing in the question matches, only the
// demographic summary is disclosed.
package disclosure

import "strings"

// Category is one of the four record groupings.
type Category string

const (
	CategoryInfo        Category = "info"
	CategoryReadings    Category = "readings"
	CategoryMedications Category = "medications"
	CategoryHistory     Category = "history"
)

// AllCategories lists the categories in disclosure order.
var AllCategories = []Category{CategoryInfo, CategoryReadings, CategoryMedications, CategoryHistory}

// vocabulary maps each category to the substrings that request it.
var vocabulary = []struct {
	category Category
	keywords []string
}{
	{CategoryInfo, []string{"age", "sex", "demograph"}},
	{CategoryReadings, []string{"vital", "bp", "heart", "temp", "weight"}},
	{CategoryMedications, []string{"med", "drug", "prescrip"}},
	{CategoryHistory, []string{"history", "surgery", "smok"}},
}

// Fetched holds the data already retrieved for one subject under an
// authorized request.
type Fetched struct {
	Info        any
	Readings    any
	Medications any
	History     any
}

func (f Fetched) get(c Category) any {
	switch c {
	case CategoryInfo:
		return f.Info
	case CategoryReadings:
		return f.Readings
	case CategoryMedications:
		return f.Medications
	case CategoryHistory:
		return f.History
	}
	return nil
}

// Context is the mapping handed to the downstream consumer.
type Context map[Category]any

// Keys returns the context's categories in disclosure order.
func (c Context) Keys() []Category {
	keys := make([]Category, 0, len(c))
	for _, cat := range AllCategories {
		if _, ok := c[cat]; ok {
			keys = append(keys, cat)
		}
	}
	return keys
}

// Categories returns the categories requested by question, in disclosure
// order. The result is never empty.
func Categories(question string) []Category {
	q := strings.ToLower(question)

	var out []Category
	for _, entry := range vocabulary {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				out = append(out, entry.category)
				break
			}
		}
	}
	if len(out) == 0 {
		out = []Category{CategoryInfo}
	}
	return out
}

// Select builds the context for question from fetched data.
func Select(question string, fetched Fetched) Context {
	cats := Categories(question)
	ctx := make(Context, len(cats))
	for _, c := range cats {
		ctx[c] = fetched.get(c)
	}
	return ctx
}

// Strings renders categories for logging and responses.
func Strings(cats []Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
