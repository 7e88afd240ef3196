package loadtest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchperf/querybench/internal/osclient"
	"github.com/searchperf/querybench/internal/queries"
)

func testCluster(t *testing.T, endpoint string) *osclient.Client {
	t.Helper()
	c, err := osclient.New(osclient.Config{Endpoint: endpoint, Timeout: 5 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestPlanTarget(t *testing.T) {
	cluster := testCluster(t, "http://search.example:9200")
	qs := []queries.Query{
		{Name: "vpc/01_count_all", LogType: queries.LogTypeVPC, Language: queries.LangPPL, Text: "source = vpc_flow_logs | stats count()"},
		{Name: "vpc/01_match_all", LogType: queries.LogTypeVPC, Language: queries.LangDSL, Text: `{"query":{"match_all":{}}}`, Index: "vpc_flow_logs"},
	}
	plan, err := NewPlan(qs, cluster, Options{Rate: 10, Duration: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	ppl, err := plan.target(qs[0])
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, ppl.Method)
	assert.Equal(t, "http://search.example:9200/_plugins/_ppl", ppl.URL)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(ppl.Body, &envelope))
	assert.Equal(t, qs[0].Text, envelope["query"])

	dsl, err := plan.target(qs[1])
	require.NoError(t, err)
	assert.Equal(t, "http://search.example:9200/vpc_flow_logs/_search", dsl.URL)
	assert.JSONEq(t, qs[1].Text, string(dsl.Body))
}

func TestNewPlanValidation(t *testing.T) {
	cluster := testCluster(t, "http://search.example:9200")
	q := queries.Query{Name: "vpc/q", Language: queries.LangPPL, Text: "source = vpc_flow_logs"}

	_, err := NewPlan(nil, cluster, Options{Rate: 10, Duration: time.Second}, zerolog.Nop())
	assert.ErrorIs(t, err, queries.ErrNoQueries)

	_, err = NewPlan([]queries.Query{q}, cluster, Options{Rate: 0, Duration: time.Second}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewPlan([]queries.Query{q}, cluster, Options{Rate: 10, Duration: 0}, zerolog.Nop())
	assert.Error(t, err)
}

func TestPlanRun(t *testing.T) {
	var pplHits, dslHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case osclient.PPLPath:
			pplHits.Add(1)
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "source")
			w.Write([]byte(`{"total":1}`))
		case "/vpc_flow_logs/_search":
			dslHits.Add(1)
			w.Write([]byte(`{"hits":{"total":{"value":1}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	qs := []queries.Query{
		{Name: "vpc/01_count_all", LogType: queries.LogTypeVPC, Language: queries.LangPPL, Text: "source = vpc_flow_logs | stats count()"},
		{Name: "vpc/01_match_all", LogType: queries.LogTypeVPC, Language: queries.LangDSL, Text: `{"query":{"match_all":{}}}`, Index: "vpc_flow_logs"},
	}
	plan, err := NewPlan(qs, testCluster(t, srv.URL), Options{Rate: 20, Duration: time.Second, Workers: 2}, zerolog.Nop())
	require.NoError(t, err)

	report, err := plan.Run(context.Background())
	require.NoError(t, err)

	assert.Positive(t, pplHits.Load())
	assert.Positive(t, dslHits.Load())

	names := report.Names()
	require.Len(t, names, 2)
	assert.Contains(t, names, "PPL Query: vpc/01_count_all")
	assert.Contains(t, names, "DSL Query: vpc/01_match_all")

	for _, name := range names {
		m := report.PerQuery[name]
		assert.Positive(t, m.Requests, "query %s saw no requests", name)
		assert.Equal(t, uint64(0), failureCount(m))
	}
	assert.Equal(t, pplHits.Load()+dslHits.Load(), int64(report.Aggregated.Requests))
}

func TestPlanRunCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	qs := []queries.Query{
		{Name: "vpc/q", LogType: queries.LogTypeVPC, Language: queries.LangPPL, Text: "source = vpc_flow_logs"},
	}
	plan, err := NewPlan(qs, testCluster(t, srv.URL), Options{Rate: 5, Duration: time.Hour}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	report, err := plan.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "cancel did not stop the attack")
	assert.NotNil(t, report)
}
