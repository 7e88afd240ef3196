package generate

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/searchperf/querybench/internal/queries"
)

// DocFunc synthesizes one document for bulk ingestion.
type DocFunc func() map[string]any

// NewDocFunc returns the document synthesizer for a log type. The big5
// dataset is file-fed, not synthesized; use Ingester.RunFile for it.
func NewDocFunc(t queries.LogType, rng *rand.Rand) (DocFunc, error) {
	switch t {
	case queries.LogTypeVPC:
		return newVPCGenerator(rng).doc, nil
	case queries.LogTypeNFW:
		return newNFWGenerator(rng).doc, nil
	case queries.LogTypeCloudTrail:
		return newCloudTrailGenerator(rng).doc, nil
	case queries.LogTypeWAF:
		return newWAFGenerator(rng).doc, nil
	default:
		return nil, fmt.Errorf("no document generator for log type %q", t)
	}
}

// timestamp is shared by all generators: every synthesized document carries
// the generation start time, which keeps ingestion cheap and time-range
// queries deterministic.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func pick[T any](rng *rand.Rand, pool []T) T {
	return pool[rng.Intn(len(pool))]
}

func randIP(rng *rand.Rand) string {
	return fmt.Sprintf("%d.%d.%d.%d", rng.Intn(255)+1, rng.Intn(255)+1, rng.Intn(255)+1, rng.Intn(255)+1)
}

func accountID(rng *rand.Rand) string {
	return fmt.Sprintf("%d", 100000000000+rng.Int63n(900000000000))
}
