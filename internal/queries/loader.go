package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// ErrNoQueries is returned when a selection matches no files in the store.
// It is a configuration error: the load test must not start on an empty set.
var ErrNoQueries = errors.New("no queries found")

// pplKeyword is the literal every PPL file must begin with.
const pplKeyword = "source"

// Manifest is the explicit, ordered list of store files a selection resolved
// to. It is built once and treated as immutable data.
type Manifest struct {
	Entries []ManifestEntry
}

type ManifestEntry struct {
	Path     string
	LogType  LogType
	Language Language
}

// BuildManifest scans the query store for files matching the selection.
// Layout: ppl/<logtype>/*.ppl and dsl/<logtype>/*.json. The result is sorted
// by path so load order is deterministic.
func BuildManifest(fsys fs.FS, logType LogType, lang Language) (Manifest, error) {
	if _, err := ParseLogType(string(logType)); err != nil {
		return Manifest{}, err
	}
	if _, err := ParseLanguage(string(lang)); err != nil {
		return Manifest{}, err
	}

	var langs []Language
	switch lang {
	case LangBoth:
		langs = []Language{LangPPL, LangDSL}
	default:
		langs = []Language{lang}
	}

	var m Manifest
	for _, l := range langs {
		ext := ".ppl"
		if l == LangDSL {
			ext = ".json"
		}
		for _, t := range logType.Expand() {
			dir := path.Join(string(l), string(t))
			names, err := fs.Glob(fsys, path.Join(dir, "*"+ext))
			if err != nil {
				return Manifest{}, fmt.Errorf("scanning %s: %w", dir, err)
			}
			for _, name := range names {
				m.Entries = append(m.Entries, ManifestEntry{
					Path:     name,
					LogType:  t,
					Language: l,
				})
			}
		}
	}

	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Path < m.Entries[j].Path })
	return m, nil
}

// Load parses every manifest entry into a Query. PPL files must begin with the
// source keyword; DSL files must hold a JSON object. Names must be unique
// within each language.
func Load(fsys fs.FS, m Manifest) ([]Query, error) {
	out := make([]Query, 0, len(m.Entries))
	seen := make(map[string]string, len(m.Entries))

	for _, e := range m.Entries {
		raw, err := fs.ReadFile(fsys, e.Path)
		if err != nil {
			return nil, fmt.Errorf("reading query file %s: %w", e.Path, err)
		}
		text := strings.TrimSpace(string(raw))

		stem := strings.TrimSuffix(path.Base(e.Path), path.Ext(e.Path))
		name := string(e.LogType) + "/" + stem

		// Uniqueness is per language: a PPL and a DSL query may share a stem,
		// their stat names stay distinct.
		key := string(e.Language) + ":" + name
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate query name %q (%s and %s)", name, prev, e.Path)
		}
		seen[key] = e.Path

		q := Query{
			Name:     name,
			LogType:  e.LogType,
			Language: e.Language,
			Text:     text,
		}

		switch e.Language {
		case LangPPL:
			if !strings.HasPrefix(text, pplKeyword) {
				return nil, fmt.Errorf("query file %s: PPL must begin with %q", e.Path, pplKeyword)
			}
		case LangDSL:
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, fmt.Errorf("query file %s: invalid DSL body: %w", e.Path, err)
			}
			q.Index = e.LogType.Index()
		}

		out = append(out, q)
	}

	return out, nil
}

// LoadQueries resolves a selection end to end and fails when it is empty.
func LoadQueries(fsys fs.FS, logType LogType, lang Language) ([]Query, error) {
	m, err := BuildManifest(fsys, logType, lang)
	if err != nil {
		return nil, err
	}
	qs, err := Load(fsys, m)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w for log type %q, language %q", ErrNoQueries, logType, lang)
	}
	return qs, nil
}

// Lookup finds a query by the name forms that appear in exported stats:
// "PPL Query: vpc/01_count_all", "vpc/01_count_all", or the bare file stem.
func Lookup(qs []Query, statName string) (Query, bool) {
	name := statName
	if i := strings.Index(name, ":"); i >= 0 {
		name = strings.TrimSpace(name[i+1:])
	}
	for _, q := range qs {
		if q.Name == name {
			return q, true
		}
	}
	// Fall back to the stem alone, the comparator's CSVs sometimes carry only that
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	for _, q := range qs {
		if strings.HasSuffix(q.Name, "/"+name) {
			return q, true
		}
	}
	return Query{}, false
}
