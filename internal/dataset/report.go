package dataset

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"mashup-go/internal/aggregator"
	"mashup-go/internal/logger"
	"mashup-go/internal/types"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultsHeader = []any{
	"row", "singer_name", "num_videos", "audio_duration", "email",
	"run_id", "outcome", "stage", "item", "output_seconds", "error",
}

// WriteReport saves per-row outcomes and their aggregate to an xlsx file.
func WriteReport(path string, rows []types.Outcome, sum aggregator.Summary) error {
	log := logger.New().Module("dataset.report").WithField("path", path)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, o := range rows {
		outcome := "failed"
		if o.Delivered {
			outcome = "delivered"
		}
		item := any("")
		if o.Index > 0 {
			item = o.Index
		}
		values := []any{
			o.Row, o.Request.Query, o.Request.Count, o.Request.TrimSeconds, o.Request.Destination,
			o.RunID, outcome, o.Stage, item, o.OutputSeconds, o.Error,
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, addr, &values); err != nil {
			return fmt.Errorf("write row %d: %w", o.Row, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]any{
		{"metric", "value"},
		{"total", sum.Total},
		{"delivered", sum.Delivered},
		{"failed", sum.Failed},
		{"delivered_seconds", sum.DeliveredSeconds},
	}
	stages := make([]string, 0, len(sum.ByStage))
	for s := range sum.ByStage {
		stages = append(stages, s)
	}
	sort.Strings(stages)
	for _, s := range stages {
		summary = append(summary, []any{"failed_at_" + s, sum.ByStage[s]})
	}
	for i, values := range summary {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, addr, &values); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		log.WithField("error", err.Error()).Error("save failed")
		return fmt.Errorf("save: %w", err)
	}
	log.WithField("rows", len(rows)).Info("report written")
	return nil
}
