package queries

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadQueries_StoreCounts(t *testing.T) {
	fsys := os.DirFS("../../queries")

	tests := []struct {
		logType LogType
		want    int
	}{
		{LogTypeVPC, 15},
		{LogTypeNFW, 37},
		{LogTypeCloudTrail, 16},
		{LogTypeWAF, 9},
		{LogTypeAll, 77},
	}

	for _, tt := range tests {
		t.Run(string(tt.logType), func(t *testing.T) {
			qs, err := LoadQueries(fsys, tt.logType, LangPPL)
			require.NoError(t, err)
			assert.Len(t, qs, tt.want)
			for _, q := range qs {
				assert.Equal(t, LangPPL, q.Language)
				assert.NotEmpty(t, q.Text)
			}
		})
	}
}

func TestLoadQueries_AllExcludesBig5(t *testing.T) {
	fsys := os.DirFS("../../queries")

	qs, err := LoadQueries(fsys, LogTypeAll, LangPPL)
	require.NoError(t, err)
	for _, q := range qs {
		assert.NotEqual(t, LogTypeBig5, q.LogType, "query %s", q.Name)
	}

	// big5 loads only when asked for by name
	big5, err := LoadQueries(fsys, LogTypeBig5, LangPPL)
	require.NoError(t, err)
	assert.NotEmpty(t, big5)
}

func TestLoadQueries_DSLCarriesIndex(t *testing.T) {
	fsys := os.DirFS("../../queries")

	qs, err := LoadQueries(fsys, LogTypeVPC, LangDSL)
	require.NoError(t, err)
	require.NotEmpty(t, qs)
	for _, q := range qs {
		assert.Equal(t, "vpc_flow_logs", q.Index)
		assert.Equal(t, LangDSL, q.Language)
	}
}

func TestLoadQueries_BothLanguages(t *testing.T) {
	fsys := os.DirFS("../../queries")

	qs, err := LoadQueries(fsys, LogTypeVPC, LangBoth)
	require.NoError(t, err)
	// 15 PPL + 5 DSL; the shared 03_top_talkers stem is allowed across languages
	assert.Len(t, qs, 20)
}

func TestParseLogType_Unknown(t *testing.T) {
	_, err := ParseLogType("syslog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syslog")
}

func TestParseLanguage_Unknown(t *testing.T) {
	_, err := ParseLanguage("sql")
	require.Error(t, err)
}

func TestLoadQueries_Empty(t *testing.T) {
	fsys := fstest.MapFS{}
	_, err := LoadQueries(fsys, LogTypeVPC, LangPPL)
	require.ErrorIs(t, err, ErrNoQueries)
}

func TestLoad_RejectsDuplicateNames(t *testing.T) {
	fsys := fstest.MapFS{
		"ppl/vpc/q1.ppl": {Data: []byte("source = vpc_flow_logs | stats count()")},
	}
	m := Manifest{Entries: []ManifestEntry{
		{Path: "ppl/vpc/q1.ppl", LogType: LogTypeVPC, Language: LangPPL},
		{Path: "ppl/vpc/q1.ppl", LogType: LogTypeVPC, Language: LangPPL},
	}}
	_, err := Load(fsys, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate query name")
}

func TestLoad_RejectsBadPPL(t *testing.T) {
	fsys := fstest.MapFS{
		"ppl/vpc/q1.ppl": {Data: []byte("search index=vpc_flow_logs")},
	}
	m, err := BuildManifest(fsys, LogTypeVPC, LangPPL)
	require.NoError(t, err)
	_, err = Load(fsys, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `must begin with "source"`)
}

func TestLoad_RejectsBadDSL(t *testing.T) {
	fsys := fstest.MapFS{
		"dsl/waf/q1.json": {Data: []byte("{not json")},
	}
	m, err := BuildManifest(fsys, LogTypeWAF, LangDSL)
	require.NoError(t, err)
	_, err = Load(fsys, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid DSL body")
}

func TestBuildManifest_DeterministicOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"ppl/vpc/b.ppl": {Data: []byte("source = vpc_flow_logs")},
		"ppl/vpc/a.ppl": {Data: []byte("source = vpc_flow_logs")},
	}
	m, err := BuildManifest(fsys, LogTypeVPC, LangPPL)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "ppl/vpc/a.ppl", m.Entries[0].Path)
	assert.Equal(t, "ppl/vpc/b.ppl", m.Entries[1].Path)
}

func TestStatName(t *testing.T) {
	ppl := Query{Name: "vpc/01_count_all", Language: LangPPL}
	dsl := Query{Name: "vpc/01_match_all", Language: LangDSL}
	assert.Equal(t, "PPL Query: vpc/01_count_all", ppl.StatName())
	assert.Equal(t, "DSL Query: vpc/01_match_all", dsl.StatName())
}

func TestLookup(t *testing.T) {
	qs := []Query{
		{Name: "vpc/01_count_all", Language: LangPPL},
		{Name: "nfw/02_drops", Language: LangPPL},
	}

	tests := []struct {
		statName string
		want     string
		found    bool
	}{
		{"PPL Query: vpc/01_count_all", "vpc/01_count_all", true},
		{"vpc/01_count_all", "vpc/01_count_all", true},
		{"02_drops", "nfw/02_drops", true},
		{"PPL Query: waf/09_missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.statName, func(t *testing.T) {
			q, ok := Lookup(qs, tt.statName)
			assert.Equal(t, tt.found, ok)
			if ok {
				assert.Equal(t, tt.want, q.Name)
			}
		})
	}
}

func TestLogTypeIndex(t *testing.T) {
	tests := []struct {
		logType LogType
		index   string
	}{
		{LogTypeVPC, "vpc_flow_logs"},
		{LogTypeNFW, "network_firewall_logs"},
		{LogTypeCloudTrail, "cloudtrail_logs"},
		{LogTypeWAF, "waf_logs"},
		{LogTypeBig5, "big5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.index, tt.logType.Index())
	}
}
