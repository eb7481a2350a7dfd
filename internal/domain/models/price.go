package models

import "time"

// PricePoint is one close observation.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// PriceSeries holds closes of a single symbol, strictly increasing in Time.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

func (s PriceSeries) Len() int { return len(s.Points) }

// Last returns the most recent point. ok is false for an empty series.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// PriceTable is an inner-joined set of closes sharing one timestamp index.
type PriceTable struct {
	Symbols []string
	Times   []time.Time
	Closes  map[string][]float64
}

func (t PriceTable) Rows() int { return len(t.Times) }

// Column returns the closes of symbol, nil when absent.
func (t PriceTable) Column(symbol string) []float64 { return t.Closes[symbol] }

// ReturnPoint is the log return ending at Time.
type ReturnPoint struct {
	Time  time.Time
	Value float64
}

// ReturnSeries is a log return series of one symbol.
type ReturnSeries struct {
	Symbol string
	Points []ReturnPoint
}

func (r ReturnSeries) Len() int { return len(r.Points) }

func (r ReturnSeries) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Value
	}
	return out
}

func (r ReturnSeries) Times() []time.Time {
	out := make([]time.Time, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Time
	}
	return out
}
