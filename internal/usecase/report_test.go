package usecase

import (
	"testing"

	"RegimeEdge/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildReportText(t *testing.T) {
	r := BuildReport("TSLA", "BTC-USD", models.RegimeState{PValue: 0.0421, Active: true}, 90, 2, 0.10, t0)

	assert.Equal(t, "ACTIVE", r.Regime)
	assert.Len(t, r.Sections, 3)

	txt := r.Text()
	assert.Contains(t, txt, "TSLA to BTC-USD Regime Edge")
	assert.Contains(t, txt, "Generated: 2024-06-03 14:30:00 UTC")
	assert.Contains(t, txt, "p-value 0.04210")
	assert.Contains(t, txt, "rolling 90-day windows at lag 2")
	assert.NotContains(t, txt, "data unavailable")
}

func TestBuildReportDefaulted(t *testing.T) {
	r := BuildReport("TSLA", "BTC-USD", models.InactiveRegime(), 90, 2, 0.10, t0)
	assert.Equal(t, "INACTIVE", r.Regime)
	assert.Contains(t, r.Text(), "[data unavailable]")
}
