package anomaly

import (
	"hash/fnv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/uidai-ops/opsintel/internal/config"
)

// syntheticFemaleShare synthesizes a female enrolment share for a district.
// The source datasets carry no gender column, so the gender pass runs on a
// simulated share: a pure function of (district name, seed), stable across
// runs and across repeated calls within a process. Callers must not treat
// the resulting anomalies as ground truth.
//
// Roughly 5% of districts land in a low band, 5% in a high band, the rest
// around a 48.5% mean. The bands are what the anomaly thresholds catch.
func syntheticFemaleShare(district string, seed uint64) float64 {
	h := fnv.New64a()
	h.Write([]byte(district))
	districtHash := h.Sum64()

	src := rand.NewSource(seed ^ districtHash)
	bucket := districtHash % 100

	switch {
	case bucket < 5:
		return distuv.Uniform{Min: 0.42, Max: 0.46, Src: src}.Rand()
	case bucket > 95:
		return distuv.Uniform{Min: 0.54, Max: 0.56, Src: src}.Rand()
	default:
		share := distuv.Normal{Mu: 0.485, Sigma: 0.02, Src: src}.Rand()
		if share < 0.44 {
			share = 0.44
		}
		if share > 0.52 {
			share = 0.52
		}
		return share
	}
}

// femaleShareFor applies the fixed global seed.
func femaleShareFor(district string) float64 {
	return syntheticFemaleShare(district, config.GenderSynthesisSeed)
}
