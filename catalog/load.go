package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/version"
)

// LoadFile reads one dictionary file:
//
//	name = "my-survey"
//	requires = ">= 0.2.0"
//
//	[[fields]]
//	field = "x_helio"
//	quantity = "length"
//	unit = "kpc"
func LoadFile(path string) (*Dictionary, error) {
	var d Dictionary
	meta, err := toml.DecodeFile(path, &d)
	if err != nil {
		return nil, errors.Wrapf(err, "decode dictionary %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.WithHint(
			errors.Newf("dictionary %s has unknown keys: %s", path, strings.Join(keys, ", ")),
			"valid entry keys are field, pattern, quantity, encoding, unit, time_kind, description, warning",
		)
	}

	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	d.Source = path

	ok, err := version.Satisfies(d.Requires, version.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "dictionary %s", path)
	}
	if !ok {
		return nil, errors.Newf("dictionary %s requires qntx-astro %s, running %s", path, d.Requires, version.Version)
	}
	return &d, nil
}

// LoadPaths loads every dictionary named by paths. A directory contributes
// its *.toml files in lexical order.
func LoadPaths(paths []string) ([]*Dictionary, error) {
	var dicts []*Dictionary
	for _, p := range paths {
		files, err := expand(p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			d, err := LoadFile(f)
			if err != nil {
				return nil, err
			}
			dicts = append(dicts, d)
		}
	}
	return dicts, nil
}

// Load builds a catalog with the dictionaries from paths ahead of the built-ins,
// so local dictionaries can correct built-in entries.
func Load(paths []string) (*Catalog, error) {
	extra, err := LoadPaths(paths)
	if err != nil {
		return nil, err
	}
	return New(append(extra, Builtin()...)...)
}

// Reload re-reads paths into an existing catalog.
func (c *Catalog) Reload(paths []string) error {
	extra, err := LoadPaths(paths)
	if err != nil {
		return err
	}
	return c.Replace(append(extra, Builtin()...)...)
}

func expand(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrapf(err, "dictionary path %s", p)
	}
	if !info.IsDir() {
		return []string{p}, nil
	}
	matches, err := filepath.Glob(filepath.Join(p, "*.toml"))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", p)
	}
	sort.Strings(matches)
	return matches, nil
}
