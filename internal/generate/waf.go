package generate

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// wafGenerator synthesizes WAF documents including the high-cardinality
// ruleGroupList/labels/rateBasedRuleList substructures.
type wafGenerator struct {
	rng           *rand.Rand
	ts            string
	accountIDs    []string
	actions       []string
	methods       []string
	ruleTypes     []string
	responseCodes []int
	countries     []string
	uris          []string
	userAgents    []string
	labelNames    []string
	conditions    []string
	locations     []string
	matchedData   []string
}

func newWAFGenerator(rng *rand.Rand) *wafGenerator {
	g := &wafGenerator{
		rng:           rng,
		ts:            timestamp(),
		actions:       []string{"ALLOW", "BLOCK", "COUNT", "CAPTCHA", "CHALLENGE"},
		methods:       []string{"GET", "POST", "PUT", "DELETE", "HEAD"},
		ruleTypes:     []string{"REGULAR", "RATE_BASED", "GROUP", "MANAGED_RULE_GROUP"},
		responseCodes: []int{200, 301, 302, 403, 404, 500},
		countries:     []string{"US", "GB", "DE", "FR", "CN", "RU", "JP", "BR", "IN"},
		uris: []string{
			"/api/v1/users", "/api/v1/orders", "/login", "/admin", "/search",
			"/static/app.js", "/images/logo.png", "/checkout",
		},
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
			"curl/7.68.0",
			"python-requests/2.31.0",
		},
		labelNames: []string{
			"awswaf:managed:aws:core-rule-set",
			"awswaf:managed:aws:known-bad-inputs",
		},
		conditions:  []string{"SQL_INJECTION", "XSS", "SIZE_CONSTRAINT"},
		locations:   []string{"HEADER", "QUERY_STRING", "URI"},
		matchedData: []string{"select", "script", "union", "drop"},
	}
	for i := 0; i < 100; i++ {
		g.accountIDs = append(g.accountIDs, accountID(rng))
	}
	return g
}

func (g *wafGenerator) ruleGroupList() []map[string]any {
	rng := g.rng
	groups := make([]map[string]any, 0, 3)
	for i := 0; i < rng.Intn(3)+1; i++ {
		group := map[string]any{
			"ruleGroupId":                 fmt.Sprintf("rulegroup-%d", rng.Intn(900000)+100000),
			"terminatingRule":             nil,
			"nonTerminatingMatchingRules": []map[string]any{},
			"excludedRules":               []map[string]any{},
		}
		if rng.Float64() > 0.7 {
			group["terminatingRule"] = map[string]any{
				"ruleId": fmt.Sprintf("rule-%d", rng.Intn(90000)+10000),
				"action": pick(rng, []string{"BLOCK", "ALLOW", "COUNT"}),
				"ruleMatchDetails": []map[string]any{{
					"conditionType": pick(rng, g.conditions),
					"location":      pick(rng, g.locations),
					"matchedData":   []string{pick(rng, g.matchedData)},
				}},
			}
		}
		if rng.Float64() > 0.5 {
			var nonTerm []map[string]any
			for j := 0; j < rng.Intn(2)+1; j++ {
				nonTerm = append(nonTerm, map[string]any{
					"ruleId":           fmt.Sprintf("rule-%d", rng.Intn(90000)+10000),
					"action":           "COUNT",
					"ruleMatchDetails": []map[string]any{},
				})
			}
			group["nonTerminatingMatchingRules"] = nonTerm
		}
		groups = append(groups, group)
	}
	return groups
}

func (g *wafGenerator) doc() map[string]any {
	rng := g.rng
	action := pick(rng, g.actions)
	method := pick(rng, g.methods)
	account := pick(rng, g.accountIDs)

	var labels []map[string]any
	if rng.Float64() > 0.6 {
		for i := 0; i < rng.Intn(2)+1; i++ {
			labels = append(labels, map[string]any{"name": pick(rng, g.labelNames)})
		}
	}

	var rateRules []map[string]any
	if rng.Float64() > 0.8 {
		rateRules = append(rateRules, map[string]any{
			"rateBasedRuleId":     fmt.Sprintf("rate-rule-%d", rng.Intn(90000)+10000),
			"rateBasedRuleName":   fmt.Sprintf("RateLimitRule%d", rng.Intn(5)+1),
			"limitKey":            pick(rng, []string{"IP", "FORWARDED_IP"}),
			"maxRateAllowed":      pick(rng, []int{100, 500, 1000, 2000}),
			"evaluationWindowSec": pick(rng, []int{60, 120, 300}),
			"limitValue":          randIP(rng),
		})
	}

	terminatingRuleID := "Default_Action"
	terminatingRuleType := "REGULAR"
	if action != "ALLOW" {
		terminatingRuleID = fmt.Sprintf("rule-%d", rng.Intn(90000)+10000)
		terminatingRuleType = pick(rng, g.ruleTypes)
	}

	waf := map[string]any{
		"formatVersion":       1,
		"webaclId":            fmt.Sprintf("arn:aws:wafv2:us-east-1:%s:regional/webacl/waf-%d/%d", account, rng.Intn(900000)+100000, rng.Intn(90000000)+10000000),
		"terminatingRuleId":   terminatingRuleID,
		"terminatingRuleType": terminatingRuleType,
		"action":              action,
		"httpSourceName":      fmt.Sprintf("CF-%d", rng.Intn(9000)+1000),
		"httpSourceId":        fmt.Sprintf("source-%d", rng.Intn(900000)+100000),
		"ruleGroupList":       g.ruleGroupList(),
		"rateBasedRuleList":   rateRules,
		"responseCodeSent":    pick(rng, g.responseCodes),
		"httpRequest": map[string]any{
			"clientIp": randIP(rng),
			"country":  pick(rng, g.countries),
			"headers": []map[string]any{
				{"name": "Host", "value": fmt.Sprintf("api%d.example.com", rng.Intn(5)+1)},
				{"name": "User-Agent", "value": pick(rng, g.userAgents)},
				{"name": "Accept", "value": "application/json"},
			},
			"uri":         pick(rng, g.uris),
			"args":        fmt.Sprintf("page=%d&limit=%d", rng.Intn(10)+1, pick(rng, []int{10, 20, 50, 100})),
			"httpVersion": "HTTP/1.1",
			"httpMethod":  method,
			"requestId":   "req-" + uuid.NewString(),
			"scheme":      "https",
			"host":        fmt.Sprintf("api%d.example.com", rng.Intn(5)+1),
		},
		"labels":                        labels,
		"requestBodySize":               rng.Intn(8193),
		"requestBodySizeInspectedByWAF": rng.Intn(8193),
		"ja3Fingerprint":                fmt.Sprintf("%d%s%d", rng.Intn(90000)+10000, pick(rng, []string{"a", "b", "c", "d", "e"}), rng.Intn(90000)+10000),
		"ja4Fingerprint":                fmt.Sprintf("ja4_%d%s", rng.Intn(90000)+10000, pick(rng, []string{"x", "y", "z"})),
		"clientAsn":                     rng.Intn(64536) + 1000,
	}
	if rng.Float64() > 0.5 {
		waf["forwardedAsn"] = rng.Intn(64536) + 1000
	}

	if action == "CAPTCHA" || action == "CHALLENGE" {
		response := map[string]any{
			"responseCode":   pick(rng, []int{200, 405}),
			"solveTimestamp": time.Now().UnixMilli() - int64(rng.Intn(59000)+1000),
		}
		if action == "CAPTCHA" {
			if rng.Float64() <= 0.3 {
				response["failureReason"] = "TOKEN_EXPIRED"
			}
			waf["captchaResponse"] = response
		} else {
			if rng.Float64() <= 0.3 {
				response["failureReason"] = "TOKEN_INVALID"
			}
			waf["challengeResponse"] = response
		}
	}

	return map[string]any{
		"@timestamp": g.ts,
		"aws":        map[string]any{"waf": waf},
	}
}
