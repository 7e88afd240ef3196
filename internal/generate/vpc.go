package generate

import (
	"fmt"
	"math/rand"
)

// vpcGenerator synthesizes VPC Flow Log documents. Pools are pre-generated so
// the hot path is only random picks.
type vpcGenerator struct {
	rng        *rand.Rand
	ts         string
	accountIDs []string
	regions    []string
	actions    []string
	statuses   []string
	directions []string
	services   []string
	ports      []int
	ipBases    []string
}

func newVPCGenerator(rng *rand.Rand) *vpcGenerator {
	g := &vpcGenerator{
		rng:        rng,
		ts:         timestamp(),
		regions:    []string{"us-east-1", "us-west-2"},
		actions:    []string{"ACCEPT", "REJECT"},
		statuses:   []string{"OK", "NODATA"},
		directions: []string{"ingress", "egress"},
		services:   []string{"S3", "EC2"},
		ports:      []int{22, 80, 443},
		ipBases:    []string{"172.31", "10.0"},
	}
	for i := 0; i < 50; i++ {
		g.accountIDs = append(g.accountIDs, accountID(rng))
	}
	return g
}

func (g *vpcGenerator) addr() string {
	return fmt.Sprintf("%s.%d.%d", pick(g.rng, g.ipBases), g.rng.Intn(255)+1, g.rng.Intn(255)+1)
}

func (g *vpcGenerator) doc() map[string]any {
	return map[string]any{
		"@timestamp":          g.ts,
		"start_time":          g.ts,
		"end_time":            g.ts,
		"interval_start_time": g.ts,
		"aws": map[string]any{
			"vpc": map[string]any{
				"account-id":          pick(g.rng, g.accountIDs),
				"action":              pick(g.rng, g.actions),
				"bytes":               g.rng.Intn(10000-64) + 64,
				"dstaddr":             g.addr(),
				"srcaddr":             g.addr(),
				"dstport":             pick(g.rng, g.ports),
				"srcport":             g.rng.Intn(65535-1024) + 1024,
				"packets":             g.rng.Intn(100) + 1,
				"region":              pick(g.rng, g.regions),
				"status_code":         pick(g.rng, g.statuses),
				"flow-direction":      pick(g.rng, g.directions),
				"pkt-dst-aws-service": pick(g.rng, g.services),
				"version":             2,
			},
		},
	}
}
