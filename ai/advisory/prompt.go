package advisory

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
)

const (
	// MaxBatchSize is the most fields a single prompt may carry.
	MaxBatchSize = 4
	// MaxSampleValues is the most sample values shown per field.
	MaxSampleValues = 3

	highConfidence   = 0.7
	mediumConfidence = 0.4
	maxSampleLen     = 40
)

// FieldInput is one column offered to the advisory classifier.
type FieldInput struct {
	Name    string
	Samples []any
	// Unit and Description are what the source document states, if anything.
	Unit        string
	Description string
}

// Hints carries what the local pipeline already believes.
type Hints struct {
	Synthetic map[string]schema.FieldClassification
	// ExplicitMetadata tells the model the document stated its own units.
	ExplicitMetadata bool
}

// PromptInput is everything BuildPrompt needs for one batch.
type PromptInput struct {
	Fields       []FieldInput
	Hints        Hints
	Corrective   bool
	SampleValues int
}

// BuildPrompt renders the batch prompt. Output depends only on its input.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	if in.Corrective {
		b.WriteString("Your previous output was invalid JSON. Reply again with exactly one JSON object and nothing else.\n\n")
	}

	b.WriteString("You classify columns of an astronomical catalog.\n")
	b.WriteString("For each field decide its physical quantity, its encoding and, when it carries a unit, the unit.\n\n")

	b.WriteString("Allowed physicalQuantity values: ")
	b.WriteString(joinQuantities(q.All))
	b.WriteString("\nAllowed encoding values: ")
	encs := make([]string, len(q.Encodings))
	for i, e := range q.Encodings {
		encs[i] = string(e)
	}
	b.WriteString(strings.Join(encs, ", "))
	b.WriteString("\nAllowed timeKind values (only for time): quantity, calendar\n")
	b.WriteString("Units per quantity (recommendedUnit must come from this list or be null):\n")
	for _, qty := range q.All {
		if units := q.Units(qty); len(units) > 0 {
			fmt.Fprintf(&b, "  %s: %s\n", qty, strings.Join(units, ", "))
		}
	}
	b.WriteString("Magnitudes and log-scaled values are logarithmic and have no unit. ")
	b.WriteString("Sexagesimal strings such as 12:34:56 are sexagesimal and have no unit.\n\n")

	if in.Hints.ExplicitMetadata {
		b.WriteString("The source file states units and descriptions explicitly. Trust them and do not re-derive them.\n\n")
	}

	writeHints(&b, in.Fields, in.Hints.Synthetic)

	n := in.SampleValues
	if n <= 0 || n > MaxSampleValues {
		n = MaxSampleValues
	}
	b.WriteString("FIELDS\n")
	for i, f := range in.Fields {
		fmt.Fprintf(&b, "%d. name: %q", i+1, f.Name)
		if samples := formatSamples(f.Samples, n); samples != "" {
			fmt.Fprintf(&b, "; samples: %s", samples)
		}
		if f.Unit != "" {
			fmt.Fprintf(&b, "; stated unit: %s", f.Unit)
		}
		if f.Description != "" {
			fmt.Fprintf(&b, "; description: %s", f.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with JSON only. No prose, no markdown, no code fences. Use exactly this shape:\n")
	b.WriteString(`{"fields":[{"field":"<name>","physicalQuantity":"<quantity>","encoding":"<encoding>",` +
		`"unitRequired":true,"recommendedUnit":"<unit or null>","timeKind":"<quantity|calendar|null>","confidence":0.0}]}`)
	b.WriteString("\n")
	return b.String()
}

func writeHints(b *strings.Builder, fields []FieldInput, synthetic map[string]schema.FieldClassification) {
	var high, medium, low []string
	for _, f := range fields {
		fc, ok := synthetic[f.Name]
		if !ok {
			continue
		}
		line := describeHint(fc)
		switch {
		case fc.Confidence >= highConfidence:
			high = append(high, line)
		case fc.Confidence >= mediumConfidence:
			medium = append(medium, line)
		default:
			low = append(low, line)
		}
	}
	if len(high)+len(medium)+len(low) == 0 {
		return
	}
	b.WriteString("HINTS\n")
	for _, tier := range []struct {
		title string
		lines []string
	}{
		{"HIGH CONFIDENCE - do not change", high},
		{"MEDIUM - confirm or refine", medium},
		{"LOW - classify freely", low},
	} {
		if len(tier.lines) == 0 {
			continue
		}
		b.WriteString(tier.title + ":\n")
		for _, l := range tier.lines {
			b.WriteString("  - " + l + "\n")
		}
	}
	b.WriteString("\n")
}

func describeHint(fc schema.FieldClassification) string {
	s := fmt.Sprintf("%s: %s, %s", fc.Field, fc.PhysicalQuantity, fc.Encoding)
	if u := fc.Unit(); u != "" {
		s += ", unit " + u
	}
	if fc.IsCalendar() {
		s += ", calendar"
	}
	return s
}

func formatSamples(values []any, n int) string {
	var parts []string
	for _, v := range values {
		if len(parts) == n {
			break
		}
		s := strings.TrimSpace(cast.ToString(v))
		if s == "" {
			continue
		}
		if r := []rune(s); len(r) > maxSampleLen {
			s = string(r[:maxSampleLen]) + "..."
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func joinQuantities(qs []q.PhysicalQuantity) string {
	out := make([]string, len(qs))
	for i, qty := range qs {
		out[i] = string(qty)
	}
	return strings.Join(out, ", ")
}
