package generate

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// nfwGenerator synthesizes Network Firewall documents with the flattened
// dotted field names the ingest pipeline produces for this log type.
type nfwGenerator struct {
	rng           *rand.Rand
	ts            string
	firewallNames []string
	srcIPs        []string
	destIPs       []string
	interfaceIDs  []string
	vpcIDs        []string
	subnetIDs     []string

	protocols    []string
	appProtocols []string
	destPorts    []int
	actions      []string
	categories   []string
	azs          []string
	regions      []string
	dnsTypes     []string
	httpMethods  []string
	httpStatuses []int
	tlsVersions  []string
	tlsCiphers   []string
	userAgents   []string
	classes      []string
	countries    []string
}

func newNFWGenerator(rng *rand.Rand) *nfwGenerator {
	g := &nfwGenerator{
		rng:          rng,
		ts:           timestamp(),
		protocols:    []string{"TCP", "UDP", "ICMP"},
		appProtocols: []string{"http", "https", "ssh", "ftp", "dns", "smtp", "unknown"},
		destPorts:    []int{80, 443, 22, 21, 53, 25, 3389, 8080, 8443, 9200},
		actions:      []string{"ALLOW", "DROP", "REJECT", "ALERT"},
		categories:   []string{"Malware", "Trojan", "Policy Violation", "Suspicious Activity"},
		azs:          []string{"us-east-1a", "us-east-1b", "us-west-2a", "us-west-2b"},
		regions:      []string{"us-east-1", "us-west-2", "eu-west-1", "ap-northeast-1"},
		dnsTypes:     []string{"A", "AAAA", "CNAME", "MX", "TXT"},
		httpMethods:  []string{"GET", "POST", "PUT", "DELETE"},
		httpStatuses: []int{200, 404, 403, 500, 502},
		tlsVersions:  []string{"TLSv1.2", "TLSv1.3"},
		tlsCiphers: []string{
			"TLS_AES_256_GCM_SHA384",
			"TLS_CHACHA20_POLY1305_SHA256",
			"ECDHE-RSA-AES256-GCM-SHA384",
		},
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
			"curl/7.68.0",
			"Python-urllib/3.9",
			"Go-http-client/1.1",
		},
		classes:   []string{"Attempted Information Leak", "Web Application Attack", "Trojan Activity"},
		countries: []string{"US", "CN", "RU", "DE", "GB", "FR", "JP"},
	}
	for i := 0; i < 5000; i++ {
		g.firewallNames = append(g.firewallNames, fmt.Sprintf("fw-%d-%s", i, uuid.NewString()[:8]))
	}
	for i := 0; i < 50000; i++ {
		g.srcIPs = append(g.srcIPs, randIP(rng))
		g.destIPs = append(g.destIPs, randIP(rng))
	}
	for i := 0; i < 10000; i++ {
		g.interfaceIDs = append(g.interfaceIDs, "eni-"+uuid.NewString()[:16])
	}
	for i := 0; i < 2000; i++ {
		g.vpcIDs = append(g.vpcIDs, "vpc-"+uuid.NewString()[:16])
	}
	for i := 0; i < 5000; i++ {
		g.subnetIDs = append(g.subnetIDs, "subnet-"+uuid.NewString()[:16])
	}
	return g
}

func (g *nfwGenerator) doc() map[string]any {
	rng := g.rng
	return map[string]any{
		"aws.networkfirewall.firewall_name":          pick(rng, g.firewallNames),
		"aws.networkfirewall.event.timestamp":        g.ts,
		"aws.networkfirewall.event.src_ip":           pick(rng, g.srcIPs),
		"aws.networkfirewall.event.dest_ip":          pick(rng, g.destIPs),
		"aws.networkfirewall.event.src_port":         rng.Intn(65535-1024) + 1024,
		"aws.networkfirewall.event.dest_port":        pick(rng, g.destPorts),
		"aws.networkfirewall.event.proto":            pick(rng, g.protocols),
		"aws.networkfirewall.event.app_proto":        pick(rng, g.appProtocols),
		"aws.networkfirewall.event.tcp.tcp_flags":    fmt.Sprintf("%d", rng.Intn(256)),
		"aws.networkfirewall.event.tcp.syn":          rng.Intn(2) == 0,
		"aws.networkfirewall.event.tcp.ack":          rng.Intn(2) == 0,
		"aws.networkfirewall.event.tcp.fin":          rng.Intn(2) == 0,
		"aws.networkfirewall.event.tcp.rst":          rng.Intn(2) == 0,
		"aws.networkfirewall.event.netflow.pkts":     rng.Intn(10000) + 1,
		"aws.networkfirewall.event.netflow.bytes":    rng.Intn(1048576-64) + 64,
		"aws.networkfirewall.event.netflow.age":      rng.Intn(3600) + 1,
		"aws.networkfirewall.event.netflow.start":    g.ts,
		"aws.networkfirewall.event.netflow.end":      g.ts,
		"aws.networkfirewall.event.action":           pick(rng, g.actions),
		"aws.networkfirewall.event.rule_group_name":  fmt.Sprintf("rulegroup-%d", rng.Intn(9000)+1000),
		"aws.networkfirewall.event.rule_name":        fmt.Sprintf("rule-%d", rng.Intn(90000)+10000),
		"aws.networkfirewall.event.rule_priority":    rng.Intn(65535) + 1,
		"aws.networkfirewall.event.signature_id":     rng.Intn(9000000) + 1000000,
		"aws.networkfirewall.event.signature_rev":    rng.Intn(100) + 1,
		"aws.networkfirewall.event.category":         pick(rng, g.categories),
		"aws.networkfirewall.event.severity":         rng.Intn(4) + 1,
		"aws.networkfirewall.interface_id":           pick(rng, g.interfaceIDs),
		"aws.networkfirewall.vpc_id":                 pick(rng, g.vpcIDs),
		"aws.networkfirewall.subnet_id":              pick(rng, g.subnetIDs),
		"aws.networkfirewall.availability_zone":      pick(rng, g.azs),
		"aws.networkfirewall.account_id":             accountID(rng),
		"aws.networkfirewall.region":                 pick(rng, g.regions),
		"aws.networkfirewall.event.flow_id":          fmt.Sprintf("flow-%d", rng.Intn(900000000)+100000000),
		"aws.networkfirewall.event.event_id":         fmt.Sprintf("event-%d", rng.Intn(900000000)+100000000),
		"aws.networkfirewall.event.classification":   pick(rng, g.classes),
		"aws.networkfirewall.event.reference":        fmt.Sprintf("http://www.emergingthreats.net/sid/%d", rng.Intn(1000000)+2000000),
		"aws.networkfirewall.event.geoip.src_country":  pick(rng, g.countries),
		"aws.networkfirewall.event.geoip.dest_country": pick(rng, g.countries[:5]),
		"aws.networkfirewall.event.http.hostname":    fmt.Sprintf("host-%d.example.com", rng.Intn(9000)+1000),
		"aws.networkfirewall.event.http.url":         fmt.Sprintf("/api/v%d/%s/%s", rng.Intn(3)+1, pick(rng, []string{"users", "data", "files"}), uuid.NewString()[:16]),
		"aws.networkfirewall.event.http.user_agent":  pick(rng, g.userAgents),
		"aws.networkfirewall.event.http.method":      pick(rng, g.httpMethods),
		"aws.networkfirewall.event.http.status":      pick(rng, g.httpStatuses),
		"aws.networkfirewall.event.dns.query":        fmt.Sprintf("%s.%s.%s", pick(rng, []string{"api", "www", "mail", "ftp"}), pick(rng, []string{"example", "test", "demo"}), pick(rng, []string{"com", "org", "net"})),
		"aws.networkfirewall.event.dns.type":         pick(rng, g.dnsTypes),
		"aws.networkfirewall.event.tls.sni":          fmt.Sprintf("secure-%d.example.com", rng.Intn(9000)+1000),
		"aws.networkfirewall.event.tls.version":      pick(rng, g.tlsVersions),
		"aws.networkfirewall.event.tls.cipher":       pick(rng, g.tlsCiphers),
	}
}
