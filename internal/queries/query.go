package queries

import "fmt"

// Language selects which query flavor to load from the store.
type Language string

const (
	LangPPL  Language = "ppl"
	LangDSL  Language = "dsl"
	LangBoth Language = "both"
)

// ParseLanguage validates a language selector from config
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LangPPL, LangDSL, LangBoth:
		return Language(s), nil
	case "":
		return LangPPL, nil
	default:
		return "", fmt.Errorf("unknown query language %q (expected ppl, dsl, or both)", s)
	}
}

// LogType is a category of ingested AWS log data.
type LogType string

const (
	LogTypeVPC        LogType = "vpc"
	LogTypeNFW        LogType = "nfw"
	LogTypeCloudTrail LogType = "cloudtrail"
	LogTypeWAF        LogType = "waf"
	LogTypeBig5       LogType = "big5"
	LogTypeAll        LogType = "all"
)

// ParseLogType validates a log-type selector from config
func ParseLogType(s string) (LogType, error) {
	switch LogType(s) {
	case LogTypeVPC, LogTypeNFW, LogTypeCloudTrail, LogTypeWAF, LogTypeBig5, LogTypeAll:
		return LogType(s), nil
	case "":
		return LogTypeAll, nil
	default:
		return "", fmt.Errorf("unknown log type %q (expected vpc, nfw, cloudtrail, waf, big5, or all)", s)
	}
}

// Expand resolves the "all" selector to the concrete AWS log types. big5 is a
// separately ingested dataset and is only ever selected explicitly.
func (t LogType) Expand() []LogType {
	if t == LogTypeAll {
		return []LogType{LogTypeVPC, LogTypeNFW, LogTypeCloudTrail, LogTypeWAF}
	}
	return []LogType{t}
}

// Index returns the OpenSearch index the log type's data lives in. DSL queries
// are posted to this index's _search endpoint; PPL queries name it in their
// source clause.
func (t LogType) Index() string {
	switch t {
	case LogTypeVPC:
		return "vpc_flow_logs"
	case LogTypeNFW:
		return "network_firewall_logs"
	case LogTypeCloudTrail:
		return "cloudtrail_logs"
	case LogTypeWAF:
		return "waf_logs"
	case LogTypeBig5:
		return "big5"
	default:
		return ""
	}
}

// Query is one loaded workload entry, immutable after load.
type Query struct {
	Name     string // "<logtype>/<file stem>", e.g. "vpc/01_count_all"
	LogType  LogType
	Language Language
	Text     string // Raw PPL text or DSL JSON body
	Index    string // Search-endpoint index for DSL queries; empty for PPL
}

// StatName is the per-request name the load driver registers with the metrics
// framework, and therefore the name that appears in exported stats CSVs.
func (q Query) StatName() string {
	if q.Language == LangDSL {
		return "DSL Query: " + q.Name
	}
	return "PPL Query: " + q.Name
}
