package usecase

import (
	"fmt"
	"strings"
	"time"

	"RegimeEdge/internal/domain/models"
)

type ReportSection struct {
	Heading string
	Lines   []string
}

// Report is the static description of the strategy plus the current regime reading.
type Report struct {
	Title       string
	Leading     string
	Target      string
	Regime      string
	PValue      float64
	Defaulted   bool
	GeneratedAt time.Time
	Sections    []ReportSection
}

// BuildReport fills the fixed report text for the pair with the given regime state.
func BuildReport(leading, target string, state models.RegimeState, window, maxLag int, threshold float64, now time.Time) Report {
	return Report{
		Title:       fmt.Sprintf("%s to %s Regime Edge", leading, target),
		Leading:     leading,
		Target:      target,
		Regime:      state.Label(),
		PValue:      state.PValue,
		Defaulted:   state.Defaulted,
		GeneratedAt: now.UTC().Truncate(time.Second),
		Sections: []ReportSection{
			{
				Heading: "Summary",
				Lines: []string{
					fmt.Sprintf("The returns of %s and %s show a time-varying lead-lag relationship.", leading, target),
					fmt.Sprintf("While the relationship holds, short-term moves of %s are used as a directional hint for %s.", leading, target),
					"The service detects the regime from daily data and issues LONG, SHORT or FLAT on every request.",
				},
			},
			{
				Heading: "Method",
				Lines: []string{
					fmt.Sprintf("Daily log returns are scored with a Granger causality F-test over rolling %d-day windows at lag %d.", window, maxLag),
					fmt.Sprintf("The regime is active while the latest p-value is below %.2f.", threshold),
					fmt.Sprintf("With an active regime, a move of %s over the last intraday bar beyond the change threshold sets the direction.", leading),
					"Without intraday data the latest daily closes are shown and the signal stays FLAT.",
				},
			},
			{
				Heading: "Scope",
				Lines: []string{
					"No orders are executed and no position sizing or risk management is applied.",
					"Signals are not stored; every request recomputes them from market data.",
				},
			},
		},
	}
}

// Text renders the report as plain text.
func (r Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Title)
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Regime: %s (p-value %.5f)", r.Regime, r.PValue)
	if r.Defaulted {
		b.WriteString(" [data unavailable]")
	}
	b.WriteString("\n")
	for i, s := range r.Sections {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, s.Heading)
		for _, l := range s.Lines {
			fmt.Fprintf(&b, "   - %s\n", l)
		}
	}
	return b.String()
}
