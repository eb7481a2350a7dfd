package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"RegimeEdge/internal/domain/models"
)

// Align inner-joins the series of symbols on their timestamps. Rows where any
// symbol has no finite observation are dropped. A symbol missing from series is
// an InsufficientDataError.
func Align(series []models.PriceSeries, symbols []string) (models.PriceTable, error) {
	bySymbol := make(map[string]map[int64]float64, len(series))
	for _, s := range series {
		m := make(map[int64]float64, len(s.Points))
		for _, p := range s.Points {
			if math.IsNaN(p.Price) {
				continue
			}
			m[p.Time.UnixNano()] = p.Price
		}
		bySymbol[s.Symbol] = m
	}

	if len(symbols) == 0 {
		return models.PriceTable{}, &models.InsufficientDataError{Op: "align", Detail: "no symbols requested"}
	}
	for _, sym := range symbols {
		if _, ok := bySymbol[sym]; !ok {
			return models.PriceTable{}, &models.InsufficientDataError{
				Op:     "align",
				Detail: fmt.Sprintf("no data for %s", sym),
			}
		}
	}

	var keys []int64
	for k := range bySymbol[symbols[0]] {
		shared := true
		for _, sym := range symbols[1:] {
			if _, ok := bySymbol[sym][k]; !ok {
				shared = false
				break
			}
		}
		if shared {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	table := models.PriceTable{
		Symbols: append([]string(nil), symbols...),
		Times:   make([]time.Time, len(keys)),
		Closes:  make(map[string][]float64, len(symbols)),
	}
	for i, k := range keys {
		table.Times[i] = time.Unix(0, k).UTC()
	}
	for _, sym := range symbols {
		col := make([]float64, len(keys))
		for i, k := range keys {
			col[i] = bySymbol[sym][k]
		}
		table.Closes[sym] = col
	}
	return table, nil
}

// BuildReturns computes log returns ln(p[t]/p[t-1]) for every symbol of table.
// Each series has table.Rows()-1 points dated with the later timestamp.
func BuildReturns(table models.PriceTable) (map[string]models.ReturnSeries, error) {
	if table.Rows() < 2 {
		return nil, &models.InsufficientDataError{Op: "build returns", Have: table.Rows(), Need: 2}
	}
	out := make(map[string]models.ReturnSeries, len(table.Symbols))
	for _, sym := range table.Symbols {
		closes := table.Column(sym)
		if len(closes) != table.Rows() {
			return nil, &models.InsufficientDataError{
				Op:     "build returns",
				Detail: fmt.Sprintf("%s has %d closes for %d rows", sym, len(closes), table.Rows()),
			}
		}
		rs := models.ReturnSeries{Symbol: sym, Points: make([]models.ReturnPoint, 0, len(closes)-1)}
		for i := range closes {
			if !validPrice(closes[i]) {
				return nil, &models.InsufficientDataError{
					Op:     "build returns",
					Detail: fmt.Sprintf("invalid price %v for %s at %s", closes[i], sym, table.Times[i].Format(time.RFC3339)),
				}
			}
			if i == 0 {
				continue
			}
			rs.Points = append(rs.Points, models.ReturnPoint{
				Time:  table.Times[i],
				Value: math.Log(closes[i] / closes[i-1]),
			})
		}
		out[sym] = rs
	}
	return out, nil
}

// LastChange returns last/secondToLast-1 for symbol together with its last close.
func LastChange(table models.PriceTable, symbol string) (change, last float64, err error) {
	closes := table.Column(symbol)
	if len(closes) < 2 {
		return 0, 0, &models.InsufficientDataError{Op: "last change", Have: len(closes), Need: 2}
	}
	prev, cur := closes[len(closes)-2], closes[len(closes)-1]
	if !validPrice(prev) || !validPrice(cur) {
		return 0, 0, &models.InsufficientDataError{
			Op:     "last change",
			Detail: fmt.Sprintf("invalid price for %s", symbol),
		}
	}
	return cur/prev - 1, cur, nil
}

// LastClose returns the final close of symbol in table.
func LastClose(table models.PriceTable, symbol string) (float64, bool) {
	closes := table.Column(symbol)
	if len(closes) == 0 {
		return 0, false
	}
	return closes[len(closes)-1], true
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
