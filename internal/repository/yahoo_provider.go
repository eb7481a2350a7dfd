package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"
	svcmetrics "RegimeEdge/internal/service/metrics"
	xhttp "RegimeEdge/pkg/http"
	applogger "RegimeEdge/pkg/logger"
	"RegimeEdge/pkg/util"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

const yahooName = "yahoo"

// chartResponse is the subset of the v8 chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Timezone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooProvider reads closes from the public Yahoo Finance chart API.
type YahooProvider struct {
	client      *xhttp.Client
	baseURL     string
	cb          *gobreaker.CircuitBreaker
	log         *applogger.Logger
	now         func() time.Time
	concurrency int
}

type YahooOption func(*YahooProvider)

func WithYahooLogger(l *applogger.Logger) YahooOption {
	return func(p *YahooProvider) { p.log = l }
}

func WithYahooClock(now func() time.Time) YahooOption {
	return func(p *YahooProvider) { p.now = now }
}

// WithYahooBreaker guards every chart request with cb.
func WithYahooBreaker(cb *gobreaker.CircuitBreaker) YahooOption {
	return func(p *YahooProvider) { p.cb = cb }
}

func NewYahooProvider(client *xhttp.Client, baseURL string, opts ...YahooOption) *YahooProvider {
	p := &YahooProvider{
		client:      client,
		baseURL:     baseURL,
		log:         applogger.Nop(),
		now:         time.Now,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewBreaker builds the circuit breaker used around provider calls.
// 4xx answers other than 429 do not count as failures.
func NewBreaker(name string, maxRequests uint32, interval, timeout time.Duration, consecutiveFails uint32, l *applogger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= consecutiveFails
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *xhttp.StatusError
			return errors.As(err, &se) && !se.Retryable()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if l != nil {
				l.Warn("circuit breaker state change",
					applogger.String("breaker", name),
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			}
		},
	})
}

func (p *YahooProvider) FetchDailyCloses(ctx context.Context, symbols []string, start time.Time) ([]models.PriceSeries, error) {
	q := url.Values{}
	q.Set("interval", string(domrepo.Interval1d))
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(p.now().Unix(), 10))
	return p.fetchAll(ctx, "daily", symbols, q, domrepo.Interval1d)
}

func (p *YahooProvider) FetchIntradayCloses(ctx context.Context, symbols []string, lookback time.Duration, bar domrepo.Interval) ([]models.PriceSeries, error) {
	if !domrepo.IsValidInterval(bar) || bar == domrepo.Interval1d {
		return nil, &models.DataRetrievalError{Op: "intraday", Symbols: symbols, Err: fmt.Errorf("unsupported intraday interval %q", bar)}
	}
	q := url.Values{}
	q.Set("interval", string(bar))
	q.Set("range", rangeDays(lookback))
	return p.fetchAll(ctx, "intraday", symbols, q, bar)
}

func (p *YahooProvider) FetchRecentDailyCloses(ctx context.Context, symbols []string, lookbackDays int) ([]models.PriceSeries, error) {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	q := url.Values{}
	q.Set("interval", string(domrepo.Interval1d))
	q.Set("range", fmt.Sprintf("%dd", lookbackDays))
	return p.fetchAll(ctx, "recent_daily", symbols, q, domrepo.Interval1d)
}

// fetchAll requests every symbol concurrently. A failing symbol is logged and omitted.
func (p *YahooProvider) fetchAll(ctx context.Context, op string, symbols []string, q url.Values, bar domrepo.Interval) ([]models.PriceSeries, error) {
	var (
		mu      sync.Mutex
		out     = make([]models.PriceSeries, 0, len(symbols))
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			s, err := p.fetchOne(gctx, sym, q, bar)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				svcmetrics.ProviderRequests.WithLabelValues(yahooName, op, "error").Inc()
				p.log.Warn("yahoo fetch failed",
					applogger.String("op", op),
					applogger.String("symbol", sym),
					applogger.Error(err),
				)
				return nil
			}
			svcmetrics.ProviderRequests.WithLabelValues(yahooName, op, "ok").Inc()
			out = append(out, s)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &models.DataRetrievalError{Op: op, Symbols: symbols, Err: err}
	}
	if len(out) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no symbols requested")
		}
		return nil, &models.DataRetrievalError{Op: op, Symbols: symbols, Err: lastErr}
	}

	order := make(map[string]int, len(symbols))
	for i, s := range symbols {
		order[s] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Symbol] < order[out[j].Symbol] })
	return out, nil
}

func (p *YahooProvider) fetchOne(ctx context.Context, symbol string, q url.Values, bar domrepo.Interval) (models.PriceSeries, error) {
	call := func() (interface{}, error) {
		var resp chartResponse
		err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         p.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
			QueryParams: q,
		}, &resp)
		return resp, err
	}

	var (
		raw interface{}
		err error
	)
	if p.cb != nil {
		raw, err = p.cb.Execute(call)
	} else {
		raw, err = call()
	}
	if err != nil {
		return models.PriceSeries{}, err
	}
	return parseChart(symbol, raw.(chartResponse), bar)
}

// parseChart turns a chart payload into a strictly increasing series. Null closes are
// skipped; for repeated timestamps the last value wins. Daily bars use adjusted closes.
func parseChart(symbol string, resp chartResponse, bar domrepo.Interval) (models.PriceSeries, error) {
	if resp.Chart.Error != nil {
		return models.PriceSeries{}, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return models.PriceSeries{}, errors.New("empty chart result")
	}
	r := resp.Chart.Result[0]

	var closes []*float64
	if bar == domrepo.Interval1d && len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == len(r.Timestamp) {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}
	if len(closes) != len(r.Timestamp) {
		return models.PriceSeries{}, fmt.Errorf("chart has %d timestamps and %d closes", len(r.Timestamp), len(closes))
	}

	byTime := make(map[int64]float64, len(closes))
	for i, ts := range r.Timestamp {
		c := closes[i]
		if c == nil || math.IsNaN(*c) {
			continue
		}
		t := util.AlignToBar(time.Unix(ts, 0), bar.Duration())
		byTime[t.UnixNano()] = *c
	}
	if len(byTime) == 0 {
		return models.PriceSeries{}, errors.New("no closes in chart")
	}

	keys := make([]int64, 0, len(byTime))
	for k := range byTime {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	s := models.PriceSeries{Symbol: symbol, Points: make([]models.PricePoint, len(keys))}
	for i, k := range keys {
		s.Points[i] = models.PricePoint{Time: time.Unix(0, k).UTC(), Price: byTime[k]}
	}
	return s, nil
}

func rangeDays(d time.Duration) string {
	days := int(math.Ceil(d.Hours() / 24))
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("%dd", days)
}
