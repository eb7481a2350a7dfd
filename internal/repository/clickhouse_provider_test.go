package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"RegimeEdge/internal/domain/models"
	domrepo "RegimeEdge/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*ClickHouseStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewClickHouseStore(db, "daily_closes", "intraday_closes")
	s.now = func() time.Time { return time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC) }
	return s, mock
}

func day(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

func TestClickHouseInitCreatesTables(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS daily_closes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS intraday_closes").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseDailyOmitsEmptySymbol(t *testing.T) {
	s, mock := newMockStore(t)
	q := regexp.QuoteMeta("SELECT day, close FROM daily_closes FINAL WHERE symbol = ? AND day >= ? ORDER BY day")

	mock.ExpectQuery(q).WithArgs("TSLA", sqlmock.AnyArg()).WillReturnRows(
		sqlmock.NewRows([]string{"day", "close"}).
			AddRow(day(1), 180.0).
			AddRow(day(2), 182.5),
	)
	mock.ExpectQuery(q).WithArgs("BTC-USD", sqlmock.AnyArg()).WillReturnRows(
		sqlmock.NewRows([]string{"day", "close"}),
	)

	out, err := s.FetchDailyCloses(context.Background(), []string{"TSLA", "BTC-USD"}, day(1))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "TSLA", out[0].Symbol)
	assert.Equal(t, 182.5, out[0].Points[1].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseIntradayPassesBar(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT ts, close FROM intraday_closes").
		WithArgs("TSLA", "5m", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"ts", "close"}).
			AddRow(ts, 180.0).
			AddRow(ts.Add(5*time.Minute), 180.4))

	out, err := s.FetchIntradayCloses(context.Background(), []string{"TSLA"}, 120*time.Hour, domrepo.Interval5m)
	require.NoError(t, err)
	require.Len(t, out[0].Points, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseQueryErrorIsDataRetrieval(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT day, close FROM daily_closes").WillReturnError(errors.New("connection refused"))

	_, err := s.FetchRecentDailyCloses(context.Background(), []string{"TSLA"}, 2)
	require.Error(t, err)
	assert.True(t, models.IsDataRetrieval(err))
}

func TestClickHouseStoreClosesRoutesByBar(t *testing.T) {
	s, mock := newMockStore(t)
	series := []models.PriceSeries{{
		Symbol: "TSLA",
		Points: []models.PricePoint{{Time: day(1), Price: 1}, {Time: day(2), Price: 2}},
	}}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_closes (symbol, day, close) VALUES (?, ?, ?),(?, ?, ?)")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, s.StoreCloses(context.Background(), domrepo.Interval1d, series))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO intraday_closes (symbol, bar, ts, close) VALUES")).
		WithArgs("TSLA", "5m", day(1), 1.0, "TSLA", "5m", day(2), 2.0).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, s.StoreCloses(context.Background(), domrepo.Interval5m, series))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseStoreClosesEmptyIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	require.NoError(t, s.StoreCloses(context.Background(), domrepo.Interval1d, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
