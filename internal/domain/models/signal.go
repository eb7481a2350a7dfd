package models

import (
	"fmt"
	"math"
	"time"
)

// RollingScore is the causality p-value of one window, dated with the first
// observation after that window.
type RollingScore struct {
	AsOf   time.Time `json:"as_of"`
	PValue float64   `json:"p_value"`
}

// RegimeState is the latest rolling score and the gate derived from it.
type RegimeState struct {
	AsOf   time.Time `json:"as_of"`
	PValue float64   `json:"p_value"`
	Active bool      `json:"active"`
	// Defaulted is set when the state was produced by the conservative fallback.
	Defaulted bool `json:"defaulted"`
}

const (
	RegimeActive   = "ACTIVE"
	RegimeInactive = "INACTIVE"
)

// NewRegimeState builds the state from the latest score. A p-value equal to threshold is inactive.
func NewRegimeState(s RollingScore, threshold float64) RegimeState {
	return RegimeState{AsOf: s.AsOf, PValue: s.PValue, Active: s.PValue < threshold}
}

// InactiveRegime is the conservative state used whenever the regime cannot be computed.
func InactiveRegime() RegimeState {
	return RegimeState{PValue: 1.0, Active: false, Defaulted: true}
}

func (r RegimeState) Label() string {
	if r.Active {
		return RegimeActive
	}
	return RegimeInactive
}

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionFlat  Direction = "FLAT"
)

const (
	ReasonRegimeInactive = "Regime inactive"
	ReasonStrongUp       = "Leading asset strongly up"
	ReasonStrongDown     = "Leading asset strongly down"
	ReasonBelowThreshold = "Leading asset movement below threshold"
)

// PriceSource tells which path produced the prices of a Signal.
type PriceSource string

const (
	PriceSourceIntraday      PriceSource = "intraday"
	PriceSourceDailyFallback PriceSource = "daily_fallback"
	PriceSourceUnavailable   PriceSource = "unavailable"
)

// Signal is the stance for the target asset at GeneratedAt.
type Signal struct {
	Direction    Direction   `json:"direction"`
	Reason       string      `json:"reason"`
	Leading      string      `json:"leading"`
	Target       string      `json:"target"`
	RegimeActive bool        `json:"regime_active"`
	PValue       float64     `json:"p_value"`
	Change       float64     `json:"change"`
	LeadingPrice float64     `json:"leading_price"`
	TargetPrice  float64     `json:"target_price"`
	PriceSource  PriceSource `json:"price_source"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

func (s Signal) RegimeLabel() string {
	if s.RegimeActive {
		return RegimeActive
	}
	return RegimeInactive
}

// ChangePercent formats Change as a signed percentage with three decimals.
func (s Signal) ChangePercent() string {
	return fmt.Sprintf("%+.3f%%", s.Change*100)
}

// RoundPValue rounds p to five decimals for display and outbound payloads.
// Regime activity is always decided on the unrounded value.
func RoundPValue(p float64) float64 {
	return math.Round(p*1e5) / 1e5
}

func (s Signal) String() string {
	return fmt.Sprintf("%s %s (%s, p=%.4f, %s)", s.Direction, s.Target, s.Reason, s.PValue, s.RegimeLabel())
}
