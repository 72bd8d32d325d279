//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/nbs"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Name:      "downtown",
			CreatedAt: now,
			Rows:      4,
			Cols:      6,
			CellSizeM: 150,
			Stats:     pipeline.RunStats{InterventionCells: 17, TotalCost: 12345678},
		},
		{
			ID:        "def12345",
			Name:      "a-very-long-run-name-that-needs-truncating",
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "downtown")
	assert.Contains(t, output, "4x6")
	assert.Contains(t, output, "12,345,678")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "a-very-long-run-name-that-n...")
}

func TestFormatSummaries(t *testing.T) {
	summaries := []model.InterventionSummary{
		{
			Category:      model.CategoryGreenRoof,
			Rank:          1,
			Count:         3,
			TotalArea:     67500,
			TotalCost:     10125000,
			MeanBenefits:  model.BenefitVector{5, 3, 3, 5, 2, 4},
			MeanImpact:    model.ImpactMeans{CoolingC: 3.5},
			SelectedCount: 2,
		},
	}

	var buf bytes.Buffer
	formatSummaries(&buf, summaries)

	output := buf.String()
	assert.Contains(t, output, "CATEGORY")
	assert.Contains(t, output, "Green Roof")
	assert.Contains(t, output, "6.75")
	assert.Contains(t, output, "10,125,000")
	assert.Contains(t, output, "73.3")
	assert.Contains(t, output, "3.50")
}

func TestFormatStats(t *testing.T) {
	budget := 5000000.0
	s := pipeline.RunStats{
		TotalCells:          24,
		InterventionCells:   12,
		CoveragePct:         50,
		TotalCost:           2500000,
		SelectedCells:       10,
		SelectedCost:        4900000,
		DiscardedGeometries: 2,
	}

	var buf bytes.Buffer
	formatStats(&buf, s, &budget)
	output := buf.String()
	assert.Contains(t, output, "24 (12 with interventions, 50.0%)")
	assert.Contains(t, output, "2,500,000")
	assert.Contains(t, output, "Budget:")
	assert.Contains(t, output, "5,000,000 (10 cells, 4,900,000 spent)")
	assert.Contains(t, output, "Discarded geometries:")

	buf.Reset()
	formatStats(&buf, pipeline.RunStats{}, nil)
	assert.NotContains(t, buf.String(), "Budget:")
	assert.NotContains(t, buf.String(), "Discarded")
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	formatTable(&buf, nbs.DefaultTable())

	output := buf.String()
	assert.Contains(t, output, "Green Roof")
	assert.Contains(t, output, "150 / m²")
	assert.Contains(t, output, "5,000 / tree")
	assert.Contains(t, output, "Rain Garden")
	assert.NotContains(t, output, "None")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
