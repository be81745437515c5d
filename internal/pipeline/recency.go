package pipeline

import (
	"math"
	"time"

	"github.com/seenimoa/levelrecon/pkg/models"
)

const (
	secondsPerDay = 86400.0
	minDecay      = 1e-4
	minHalfLife   = 1e-6
)

// ApplyRecency returns a copy of swings whose bar volumes are decayed
// exponentially by age relative to reference.
//
// volume' = max(volume, 1) · max(0.5^(age/halfLife), 1e-4), with age in
// whole seconds converted to days and clamped at zero.
func ApplyRecency(swings []models.SwingPoint, reference time.Time, halfLifeDays float64) []models.SwingPoint {
	halfLife := math.Max(halfLifeDays, minHalfLife)
	out := make([]models.SwingPoint, len(swings))
	for i, sp := range swings {
		age := float64(max(int64(reference.Sub(sp.Bar.Timestamp)/time.Second), 0)) / secondsPerDay
		decay := math.Max(math.Pow(0.5, age/halfLife), minDecay)
		sp.Bar.Volume = math.Max(sp.Bar.Volume, 1) * decay
		out[i] = sp
	}
	return out
}
