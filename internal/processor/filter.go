package processor

import (
	"math"

	"birdscout-go/internal/types"
)

// NoSpeciesSentinel is the reserved class name the classifier returns when a
// window contains no qualifying species.
const NoSpeciesSentinel = "No bird detected"

// MinScore is the low-confidence floor; predictions below it are noise.
const MinScore = 0.1

// Filter drops the sentinel class and low-confidence predictions, keeping
// the classifier's ranking order. An empty result is a normal outcome, not
// a fault.
func Filter(preds []types.Prediction) []types.Prediction {
	var kept []types.Prediction
	for _, p := range preds {
		if p.ClassName == NoSpeciesSentinel || p.Score < MinScore {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// BuildDetection maps surviving predictions onto the detection document's
// parallel sequences. Scores become rounded integer percentages; order is
// the classifier's, never re-sorted.
func BuildDetection(recordingID string, kept []types.Prediction) types.Detection {
	d := types.Detection{
		RecordingID:     recordingID,
		ScientificName:  make([]string, 0, len(kept)),
		ConfidenceLevel: make([]int, 0, len(kept)),
		TimestampOffset: 0,
	}
	for _, p := range kept {
		d.ScientificName = append(d.ScientificName, p.ClassName)
		d.ConfidenceLevel = append(d.ConfidenceLevel, int(math.Round(p.Score*100)))
	}
	return d
}
