package models

import "time"

// Requests and responses of the signal HTTP endpoints.

type DashboardRequest struct {
	// Refresh is the page reload period in seconds; zero means the configured default.
	Refresh int `query:"refresh" json:"refresh" validate:"omitempty,gte=5,lte=3600"`
}

type StreamRequest struct {
	Interval int `query:"interval" json:"interval" default:"60" validate:"gte=5,lte=3600"`
}

type SignalResponse struct {
	Direction    Direction   `json:"direction"`
	Reason       string      `json:"reason"`
	Leading      string      `json:"leading"`
	Target       string      `json:"target"`
	Regime       string      `json:"regime"`
	PValue       float64     `json:"p_value"`
	Change       float64     `json:"change"`
	ChangePct    string      `json:"change_pct"`
	LeadingPrice float64     `json:"leading_price"`
	TargetPrice  float64     `json:"target_price"`
	PriceSource  PriceSource `json:"price_source"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

func NewSignalResponse(s Signal) SignalResponse {
	return SignalResponse{
		Direction:    s.Direction,
		Reason:       s.Reason,
		Leading:      s.Leading,
		Target:       s.Target,
		Regime:       s.RegimeLabel(),
		PValue:       RoundPValue(s.PValue),
		Change:       s.Change,
		ChangePct:    s.ChangePercent(),
		LeadingPrice: s.LeadingPrice,
		TargetPrice:  s.TargetPrice,
		PriceSource:  s.PriceSource,
		GeneratedAt:  s.GeneratedAt,
	}
}

type RegimeResponse struct {
	Leading   string    `json:"leading"`
	Target    string    `json:"target"`
	Regime    string    `json:"regime"`
	PValue    float64   `json:"p_value"`
	AsOf      time.Time `json:"as_of"`
	Defaulted bool      `json:"defaulted"`
}
