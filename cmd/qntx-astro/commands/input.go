package commands

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/ingest"
)

// table is a catalog file read into memory: preamble comment lines, headers
// and data rows.
type table struct {
	FileType  string
	RawHeader string
	Headers   []string
	Rows      [][]string
}

// readTable reads a CSV or TSV catalog. Leading lines starting with '#' or
// '\' (IPAC keywords) form the raw header; the first other line names the
// columns.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return parseTable(f, fileType)
}

func parseTable(r io.Reader, fileType string) (*table, error) {
	br := bufio.NewReader(r)
	var preamble []string
	for {
		peek, err := br.Peek(1)
		if err != nil || (peek[0] != '#' && peek[0] != '\\') {
			break
		}
		line, err := br.ReadString('\n')
		preamble = append(preamble, strings.TrimRight(line, "\r\n"))
		if err != nil {
			break
		}
	}

	cr := csv.NewReader(br)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if fileType == "tsv" {
		cr.Comma = '\t'
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse table")
	}
	if len(records) == 0 {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrInvalidRequest, "table has no header row"),
			"the first non-comment line must name the columns")
	}

	t := &table{
		FileType:  fileType,
		RawHeader: strings.Join(preamble, "\n"),
		Headers:   records[0],
		Rows:      records[1:],
	}
	for i := range t.Headers {
		t.Headers[i] = strings.TrimSpace(t.Headers[i])
	}
	return t, nil
}

// request builds a classification request from the first sampleRows rows.
// Numeric cells are sent as numbers, everything else verbatim.
func (t *table) request(dataset string, sampleRows int, unitHints map[string]string) ingest.Request {
	req := ingest.Request{
		Dataset:   dataset,
		FileType:  t.FileType,
		RawHeader: t.RawHeader,
		Columns:   make([]ingest.Column, len(t.Headers)),
	}
	n := len(t.Rows)
	if sampleRows > 0 && sampleRows < n {
		n = sampleRows
	}
	for i, header := range t.Headers {
		col := ingest.Column{Header: header, UnitHint: unitHints[header]}
		for _, row := range t.Rows[:n] {
			if i < len(row) {
				col.Samples = append(col.Samples, cell(row[i]))
			}
		}
		req.Columns[i] = col
	}
	return req
}

// records returns the rows keyed by header. Cells stay text so columns
// without a conversion are written back exactly as read.
func (t *table) records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for r, row := range t.Rows {
		m := make(map[string]any, len(t.Headers))
		for i, header := range t.Headers {
			if i < len(row) {
				m[header] = row[i]
			}
		}
		out[r] = m
	}
	return out
}

func cell(s string) any {
	s = strings.TrimSpace(s)
	if f, err := cast.ToFloat64E(s); err == nil && s != "" {
		return f
	}
	return s
}

// parseAssignments parses repeated field=value flags
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(field) == "" || strings.TrimSpace(value) == "" {
			return nil, errors.WithHintf(
				errors.Wrapf(errors.ErrInvalidRequest, "malformed assignment %q", p),
				"use field=unit, e.g. sy_dist=ly")
		}
		out[strings.TrimSpace(field)] = strings.TrimSpace(value)
	}
	return out, nil
}

// datasetName defaults to the file name without extension
func datasetName(path, flag string) string {
	if flag != "" {
		return flag
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
