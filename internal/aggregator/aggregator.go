package aggregator

import (
	"errors"

	"mashup-go/internal/types"
)

type Summary struct {
	Total            int            `json:"total"`
	Delivered        int            `json:"delivered"`
	Failed           int            `json:"failed"`
	ByStage          map[string]int `json:"failed_by_stage"`
	DeliveredSeconds float64        `json:"delivered_seconds"`
}

func Aggregate(rows []types.Outcome) Summary {
	sum := Summary{Total: len(rows), ByStage: map[string]int{}}
	for _, r := range rows {
		if r.Delivered {
			sum.Delivered++
			sum.DeliveredSeconds += r.OutputSeconds
			continue
		}
		sum.Failed++
		stage := r.Stage
		if stage == "" {
			stage = "other"
		}
		sum.ByStage[stage]++
	}
	return sum
}

// Classify names the stage err came from and the item it concerns.
func Classify(err error) (stage string, index int) {
	if err == nil {
		return "", 0
	}
	if kind, idx, ok := types.Stage(err); ok {
		return kind.Error(), idx
	}
	if errors.Is(err, types.ErrInvalidRequest) {
		return "invalid", 0
	}
	return "other", 0
}
