// Package report builds the detections export workbook: one raw sheet with
// every persisted detection row and one summary sheet with per-species
// counts and mean confidence.
package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"birdscout-go/internal/logger"
	"birdscout-go/internal/types"
)

const (
	rawSheet     = "Detections"
	summarySheet = "Summary"
)

// SpeciesStat is one summary row: how often a species was detected and the
// mean of its stored confidence percentages.
type SpeciesStat struct {
	Name     string
	Count    int
	MeanConf float64
}

// Summarize aggregates detections per species, ranked by detection count
// with alphabetical tie-break so output is stable. Detections with
// mismatched parallel sequences are skipped; they should not exist.
func Summarize(dets []types.Detection) []SpeciesStat {
	counts := map[string]int{}
	totals := map[string]int{}
	for _, d := range dets {
		if len(d.ScientificName) != len(d.ConfidenceLevel) {
			continue
		}
		for i, name := range d.ScientificName {
			counts[name]++
			totals[name] += d.ConfidenceLevel[i]
		}
	}
	out := make([]SpeciesStat, 0, len(counts))
	for name, n := range counts {
		out = append(out, SpeciesStat{
			Name:     name,
			Count:    n,
			MeanConf: float64(totals[name]) / float64(n),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Build assembles the workbook in memory.
func Build(dets []types.Detection) (*excelize.File, error) {
	log := logger.New().WithField("component", "report")
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", rawSheet); err != nil {
		return nil, fmt.Errorf("workbook setup: %w", err)
	}

	header := []string{"Recording", "Scientific Name", "Confidence %", "Offset"}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(rawSheet, cell, h)
	}
	row := 2
	for _, d := range dets {
		if len(d.ScientificName) != len(d.ConfidenceLevel) {
			log.WithField("recording", d.RecordingID).Warn("detection has mismatched sequences, skipping")
			continue
		}
		for i, name := range d.ScientificName {
			_ = f.SetCellValue(rawSheet, fmt.Sprintf("A%d", row), d.RecordingID)
			_ = f.SetCellValue(rawSheet, fmt.Sprintf("B%d", row), name)
			_ = f.SetCellValue(rawSheet, fmt.Sprintf("C%d", row), d.ConfidenceLevel[i])
			_ = f.SetCellValue(rawSheet, fmt.Sprintf("D%d", row), d.TimestampOffset)
			row++
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("workbook setup: %w", err)
	}
	_ = f.SetCellValue(summarySheet, "A1", "Scientific Name")
	_ = f.SetCellValue(summarySheet, "B1", "Detections")
	_ = f.SetCellValue(summarySheet, "C1", "Mean Confidence %")
	stats := Summarize(dets)
	for i, st := range stats {
		r := i + 2
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", r), st.Name)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", r), st.Count)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", r), st.MeanConf)
	}

	log.WithField("detections", len(dets)).WithField("species", len(stats)).Info("workbook built")
	return f, nil
}

// Write builds the workbook and saves it to path.
func Write(path string, dets []types.Detection) error {
	f, err := Build(dets)
	if err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
