package advisory

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"

	"github.com/teranos/qntx-astro/catalog"
	"github.com/teranos/qntx-astro/errors"
	q "github.com/teranos/qntx-astro/quantity"
)

// defaultConfidence applies when the response omits or garbles confidence.
const defaultConfidence = 0.5

// Classification is one validated advisory answer. Every member is inside
// the closed vocabularies.
type Classification struct {
	Field           string             `json:"field"`
	Quantity        q.PhysicalQuantity `json:"physicalQuantity"`
	Encoding        q.Encoding         `json:"encoding"`
	UnitRequired    bool               `json:"unitRequired"`
	RecommendedUnit string             `json:"recommendedUnit,omitempty"`
	TimeKind        q.TimeKind         `json:"timeKind,omitempty"`
	Confidence      float64            `json:"confidence"`
}

// rawField is the untrusted shape of one entry in the model's reply.
type rawField struct {
	Field            any `json:"field"`
	Name             any `json:"name"`
	PhysicalQuantity any `json:"physicalQuantity"`
	Quantity         any `json:"quantity"`
	Encoding         any `json:"encoding"`
	UnitRequired     any `json:"unitRequired"`
	RecommendedUnit  any `json:"recommendedUnit"`
	Unit             any `json:"unit"`
	TimeKind         any `json:"timeKind"`
	Confidence       any `json:"confidence"`
}

// ExtractJSON pulls a single JSON object out of decorated model output:
// code fences are stripped and the text between the first '{' and the last
// '}' is returned.
func ExtractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseResponse validates the model's reply for batch. Names outside batch
// are ignored; a reply that yields no usable field is malformed.
func ParseResponse(text string, batch []string) (map[string]Classification, error) {
	doc, ok := ExtractJSON(text)
	if !ok {
		return nil, errors.Wrap(errors.ErrMalformedAdvisory, "no JSON object in response")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &top); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedAdvisory, "decode response: %v", err)
	}

	var raws []rawField
	if fields, ok := top["fields"]; ok {
		if err := json.Unmarshal(fields, &raws); err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedAdvisory, "decode fields: %v", err)
		}
	} else {
		for key, msg := range top {
			var r rawField
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			if r.Field == nil && r.Name == nil {
				r.Field = key
			}
			raws = append(raws, r)
		}
	}

	index := make(map[string]string, len(batch))
	for _, f := range batch {
		index[f] = f
		if _, taken := index[catalog.NormalizeName(f)]; !taken {
			index[catalog.NormalizeName(f)] = f
		}
	}

	out := make(map[string]Classification, len(batch))
	for _, r := range raws {
		name := firstString(r.Field, r.Name)
		field, ok := index[name]
		if !ok {
			field, ok = index[catalog.NormalizeName(name)]
		}
		if !ok {
			continue
		}
		if _, dup := out[field]; dup {
			continue
		}
		out[field] = r.validate(field)
	}
	if len(out) == 0 {
		return nil, errors.Wrap(errors.ErrMalformedAdvisory, "response names none of the requested fields")
	}
	return out, nil
}

// validate coerces the loose values into the closed vocabularies.
func (r rawField) validate(field string) Classification {
	c := Classification{
		Field:    field,
		Quantity: q.ParseQuantity(firstString(r.PhysicalQuantity, r.Quantity)),
		Encoding: q.ParseEncoding(firstString(r.Encoding)),
	}

	if b, err := cast.ToBoolE(r.UnitRequired); err == nil && r.UnitRequired != nil {
		c.UnitRequired = b
	} else {
		c.UnitRequired = q.HasUnits(c.Quantity)
	}
	if c.Quantity.Unitless() || !c.Encoding.Convertible() {
		c.UnitRequired = false
	}

	if u := q.NormalizeUnit(firstString(r.RecommendedUnit, r.Unit)); u != "" && q.Allowed(c.Quantity, u) {
		c.RecommendedUnit = u
	}

	if c.Quantity == q.Time {
		c.TimeKind = q.TimeQuantity
		if k, ok := q.ParseTimeKind(firstString(r.TimeKind)); ok {
			c.TimeKind = k
		}
		if c.TimeKind == q.TimeCalendar {
			c.UnitRequired = false
		}
	}

	c.Confidence = defaultConfidence
	if f, err := cast.ToFloat64E(r.Confidence); err == nil && r.Confidence != nil {
		c.Confidence = clamp01(f)
	}
	return c
}

// firstString returns the first value that renders as a non-empty, non-null string.
func firstString(values ...any) string {
	for _, v := range values {
		if v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" && !strings.EqualFold(s, "null") {
			return s
		}
	}
	return ""
}

func clamp01(f float64) float64 {
	switch {
	case f != f:
		return defaultConfidence
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
