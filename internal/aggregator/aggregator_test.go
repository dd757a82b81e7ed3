package aggregator

import (
	"errors"
	"fmt"
	"testing"

	"mashup-go/internal/types"
)

func TestAggregate_CountsOutcomesByStage(t *testing.T) {
	sum := Aggregate([]types.Outcome{
		{Delivered: true, OutputSeconds: 55},
		{Delivered: true, OutputSeconds: 20},
		{Stage: "fetch"},
		{Stage: "fetch"},
		{Stage: "delivery"},
		{},
	})
	if sum.Total != 6 || sum.Delivered != 2 || sum.Failed != 4 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if sum.ByStage["fetch"] != 2 || sum.ByStage["delivery"] != 1 || sum.ByStage["other"] != 1 {
		t.Fatalf("unexpected stage counts %v", sum.ByStage)
	}
	if sum.DeliveredSeconds != 75 {
		t.Fatalf("delivered seconds = %v", sum.DeliveredSeconds)
	}
}

func TestClassify(t *testing.T) {
	stage, idx := Classify(types.TrimError(3, errors.New("bad header")))
	if stage != "trim" || idx != 3 {
		t.Fatalf("got %s/%d", stage, idx)
	}
	stage, _ = Classify(fmt.Errorf("%w: count", types.ErrInvalidRequest))
	if stage != "invalid" {
		t.Fatalf("got %s", stage)
	}
	if stage, _ := Classify(nil); stage != "" {
		t.Fatalf("nil error should have no stage, got %s", stage)
	}
}
