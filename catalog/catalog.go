// Package catalog holds domain dictionaries: survey-specific column tables that
// encode known physics and take precedence over every inferred classification.
//
// A Catalog is safe for concurrent use; Replace swaps the dictionary set
// atomically so a running server can pick up edited dictionary files.
package catalog

import (
	"regexp"
	"strings"
	"sync"

	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/quantity"
)

// Entry is one authoritative column definition.
type Entry struct {
	// Field is the exact (normalized) column name. Either Field or Pattern is set.
	Field string `toml:"field"`
	// Pattern is a regular expression over the normalized column name.
	Pattern string `toml:"pattern"`

	Quantity    quantity.PhysicalQuantity `toml:"quantity"`
	Encoding    quantity.Encoding         `toml:"encoding"`
	Unit        string                    `toml:"unit"`
	TimeKind    quantity.TimeKind         `toml:"time_kind"`
	Description string                    `toml:"description"`
	Warning     string                    `toml:"warning"`

	re *regexp.Regexp
}

// Dictionary is a named, ordered set of entries for one survey or archive.
type Dictionary struct {
	Name        string  `toml:"name"`
	Description string  `toml:"description"`
	Requires    string  `toml:"requires"`
	Entries     []Entry `toml:"fields"`

	// Source is the file the dictionary was loaded from ("builtin" otherwise).
	Source string `toml:"-"`
}

// Hit is a successful lookup.
type Hit struct {
	Entry      Entry
	Dictionary string
}

// Catalog indexes dictionaries for lookup by column name. Exact entries win
// over patterns; earlier dictionaries win over later ones.
type Catalog struct {
	mu       sync.RWMutex
	dicts    []*Dictionary
	exact    map[string]Hit
	patterns []Hit
}

// New builds a catalog from dictionaries, compiling patterns and normalizing
// entries. Invalid entries are reported together.
func New(dicts ...*Dictionary) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(dicts...); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns a catalog holding only the built-in dictionaries.
func Default() *Catalog {
	c, err := New(Builtin()...)
	if err != nil {
		panic(errors.Wrap(err, "built-in dictionaries are invalid"))
	}
	return c
}

// Replace swaps the dictionary set. On error the previous set is kept.
func (c *Catalog) Replace(dicts ...*Dictionary) error {
	exact := make(map[string]Hit)
	var patterns []Hit
	var errs []error

	for _, d := range dicts {
		if d == nil {
			continue
		}
		for i := range d.Entries {
			e, err := prepare(d.Entries[i])
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "%s entry %d", d.Name, i))
				continue
			}
			hit := Hit{Entry: e, Dictionary: d.Name}
			if e.re != nil {
				patterns = append(patterns, hit)
				continue
			}
			if _, dup := exact[e.Field]; !dup {
				exact[e.Field] = hit
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.mu.Lock()
	c.dicts = dicts
	c.exact = exact
	c.patterns = patterns
	c.mu.Unlock()
	return nil
}

// Lookup finds the authoritative entry for a column name.
func (c *Catalog) Lookup(field string) (Hit, bool) {
	name := NormalizeName(field)
	if name == "" {
		return Hit{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if hit, ok := c.exact[name]; ok {
		return hit, true
	}
	for _, hit := range c.patterns {
		if hit.Entry.re.MatchString(name) {
			return hit, true
		}
	}
	return Hit{}, false
}

// Dictionaries returns the names of the loaded dictionaries in precedence order.
func (c *Catalog) Dictionaries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.dicts))
	for _, d := range c.dicts {
		if d != nil {
			names = append(names, d.Name)
		}
	}
	return names
}

// Len returns the number of indexed entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.exact) + len(c.patterns)
}

var nameSeparators = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

// NormalizeName lower-cases a column name and folds separators to underscores.
func NormalizeName(s string) string {
	return nameSeparators.Replace(strings.ToLower(strings.TrimSpace(s)))
}

func prepare(e Entry) (Entry, error) {
	e.Field = NormalizeName(e.Field)
	if e.Field == "" && e.Pattern == "" {
		return e, errors.New("entry needs a field or a pattern")
	}
	if !e.Quantity.Valid() {
		return e, errors.Newf("quantity %q is not in the vocabulary", e.Quantity)
	}
	if e.Encoding == "" {
		e.Encoding = quantity.Linear
	} else {
		e.Encoding = quantity.ParseEncoding(string(e.Encoding))
	}
	if e.TimeKind != "" {
		kind, ok := quantity.ParseTimeKind(string(e.TimeKind))
		if !ok {
			return e, errors.Newf("time_kind %q is not quantity or calendar", e.TimeKind)
		}
		e.TimeKind = kind
	}
	if e.Unit != "" {
		e.Unit = quantity.NormalizeUnit(e.Unit)
		if !quantity.Allowed(e.Quantity, e.Unit) {
			return e, errors.Wrapf(errors.ErrUnknownUnit, "%q for %s", e.Unit, e.Quantity)
		}
	}
	if e.Field == "" {
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return e, errors.Wrapf(err, "pattern %q", e.Pattern)
		}
		e.re = re
	}
	return e, nil
}
