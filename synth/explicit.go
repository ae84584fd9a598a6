package synth

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/teranos/qntx-astro/catalog"
	q "github.com/teranos/qntx-astro/quantity"
)

// Explicit metadata sources.
const (
	SourceFITS          = "fits"
	SourceColumnComment = "column-comment"
	SourceInlineComment = "inline-comment"
	SourceVOTable       = "votable"
	SourceJSONSchema    = "json-schema"
)

// ExplicitMetadata is what the source document already states about its columns.
type ExplicitMetadata struct {
	Present      bool              `json:"present"`
	Units        map[string]string `json:"units,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
	Source       string            `json:"source,omitempty"`
}

// Unit returns the stated unit for field, normalized.
func (m ExplicitMetadata) Unit(field string) (string, bool) {
	u, ok := m.Units[field]
	return u, ok && u != ""
}

var (
	fitsCardRe      = regexp.MustCompile(`(?m)^\s*(TTYPE|TUNIT|TCOMM)(\d+)\s*=\s*'([^']*)'`)
	columnCommentRe = regexp.MustCompile(`(?m)^\s*[#\\]\s*COLUMN\s+([^\s:]+)\s*:\s*(.*?)\s*$`)
	inlineCommentRe = regexp.MustCompile(`(?m)^\s*#\s*([A-Za-z_][\w.\-]*)\s*[\(\[]([^\)\]]+)[\)\]]\s*(?::\s*(.*?))?\s*$`)
	trailingUnitRe  = regexp.MustCompile(`\s*[\(\[]([^\)\]]+)[\)\]]\s*$`)
	voFieldRe       = regexp.MustCompile(`(?is)<FIELD\b([^>]*)>`)
	xmlAttrRe       = regexp.MustCompile(`(\w+)\s*=\s*"([^"]*)"`)
)

// DetectExplicitMetadata scans raw header text for units and descriptions
// stated by the document itself. Only fields listed in fields are reported,
// keyed by their original spelling.
func DetectExplicitMetadata(rawHeader string, fields []string) ExplicitMetadata {
	out := ExplicitMetadata{
		Units:        map[string]string{},
		Descriptions: map[string]string{},
	}
	if strings.TrimSpace(rawHeader) == "" || len(fields) == 0 {
		return out
	}

	index := make(map[string]string, len(fields))
	for _, f := range fields {
		key := catalog.NormalizeName(strings.TrimSpace(f))
		if _, dup := index[key]; !dup {
			index[key] = f
		}
	}
	d := detector{out: &out, index: index}

	d.fits(rawHeader)
	d.columnComments(rawHeader)
	d.inlineComments(rawHeader)
	d.votable(rawHeader)
	d.jsonSchema(rawHeader)

	out.Present = len(out.Units) > 0 || len(out.Descriptions) > 0
	return out
}

type detector struct {
	out   *ExplicitMetadata
	index map[string]string
}

// record keeps the first unit and description seen for a field.
func (d *detector) record(source, name, unit, desc string) {
	field, ok := d.index[catalog.NormalizeName(strings.TrimSpace(name))]
	if !ok {
		return
	}
	recorded := false
	if unit = strings.TrimSpace(unit); unit != "" && !q.IsSentinelUnit(unit) {
		if _, seen := d.out.Units[field]; !seen {
			d.out.Units[field] = q.NormalizeUnit(unit)
			recorded = true
		}
	}
	if desc = strings.TrimSpace(desc); desc != "" {
		if _, seen := d.out.Descriptions[field]; !seen {
			d.out.Descriptions[field] = desc
			recorded = true
		}
	}
	if recorded && d.out.Source == "" {
		d.out.Source = source
	}
}

func (d *detector) fits(raw string) {
	type column struct{ name, unit, comment string }
	cols := map[int]*column{}
	var order []int
	for _, m := range fitsCardRe.FindAllStringSubmatch(raw, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		c, ok := cols[n]
		if !ok {
			c = &column{}
			cols[n] = c
			order = append(order, n)
		}
		v := strings.TrimSpace(m[3])
		switch m[1] {
		case "TTYPE":
			c.name = v
		case "TUNIT":
			c.unit = v
		case "TCOMM":
			c.comment = v
		}
	}
	for _, n := range order {
		if c := cols[n]; c.name != "" {
			d.record(SourceFITS, c.name, c.unit, c.comment)
		}
	}
}

// columnComments handles "# COLUMN pl_orbper: Orbital Period [days]".
func (d *detector) columnComments(raw string) {
	for _, m := range columnCommentRe.FindAllStringSubmatch(raw, -1) {
		desc, unit := m[2], ""
		if u := trailingUnitRe.FindStringSubmatchIndex(desc); u != nil {
			unit = desc[u[2]:u[3]]
			desc = desc[:u[0]]
		}
		d.record(SourceColumnComment, m[1], unit, desc)
	}
}

// inlineComments handles "# teff (K): effective temperature" and "# dist [pc]".
func (d *detector) inlineComments(raw string) {
	for _, m := range inlineCommentRe.FindAllStringSubmatch(raw, -1) {
		if strings.EqualFold(m[1], "COLUMN") {
			continue
		}
		d.record(SourceInlineComment, m[1], m[2], m[3])
	}
}

func (d *detector) votable(raw string) {
	for _, m := range voFieldRe.FindAllStringSubmatch(raw, -1) {
		attrs := map[string]string{}
		for _, a := range xmlAttrRe.FindAllStringSubmatch(m[1], -1) {
			attrs[strings.ToLower(a[1])] = a[2]
		}
		name := attrs["name"]
		if name == "" {
			name = attrs["id"]
		}
		if name == "" {
			continue
		}
		d.record(SourceVOTable, name, attrs["unit"], attrs["ucd"])
	}
}

type jsonSchemaDoc struct {
	Fields  []jsonSchemaField `json:"fields"`
	Columns []jsonSchemaField `json:"columns"`
}

type jsonSchemaField struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

// jsonSchema handles an embedded {"fields":[{"name","unit","description"}]} object.
func (d *detector) jsonSchema(raw string) {
	start, end := strings.IndexByte(raw, '{'), strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return
	}
	var doc jsonSchemaDoc
	if err := json.Unmarshal([]byte(raw[start:end+1]), &doc); err != nil {
		return
	}
	for _, f := range append(doc.Fields, doc.Columns...) {
		d.record(SourceJSONSchema, f.Name, f.Unit, f.Description)
	}
}
