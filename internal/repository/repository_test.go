package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"reflect"
	"strconv"
	"testing"
	"time"

	"CreditRisk/internal/domain/models"
	"CreditRisk/pkg/cache"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthrough lets array arguments reach sqlmock unchanged.
type passthrough struct{}

func (passthrough) ConvertValue(v interface{}) (driver.Value, error) { return v, nil }

type eqArg struct{ want interface{} }

func (a eqArg) Match(v driver.Value) bool { return reflect.DeepEqual(a.want, v) }

func sampleEvent() *models.AuditEvent {
	return &models.AuditEvent{
		ID:           "0b5c3c4e-4e3c-4d7b-9a52-8d1f6f8f2a10",
		Timestamp:    time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		ModelVersion: "fixture@abc",
		Columns:      []models.FeatureName{models.Status, models.Duration},
		Values:       []int{3, 24},
		Class:        1,
		Outcome:      models.OutcomeFavorable,
		Confidence:   0.8,
	}
}

func TestAuditSchema(t *testing.T) {
	stmts := AuditSchema("creditrisk")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS creditrisk", stmts[0])
	assert.Contains(t, stmts[1], "creditrisk.credit_assessments")
}

func TestClickHouseAuditStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	require.NoError(t, err)
	defer db.Close()

	e := sampleEvent()
	mock.ExpectExec(`INSERT INTO creditrisk\.credit_assessments`).
		WithArgs(e.ID, e.Timestamp, e.ModelVersion,
			eqArg{[]string{"Status", "Duration"}}, eqArg{[]int32{3, 24}}, eqArg{uint8(1)},
			"favorable", 0.8, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewClickHouseAuditStore(db, "creditrisk."+AuditTable)
	require.NoError(t, store.Record(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseAuditStore_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("table is read only"))

	err = NewClickHouseAuditStore(db, "creditrisk."+AuditTable).Record(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "table is read only")
}

func TestClickHouseAuditStore_CountByOutcome(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT outcome, count\(\) FROM creditrisk\.credit_assessments`).
		WillReturnRows(sqlmock.NewRows([]string{"outcome", "count"}).
			AddRow("favorable", 7).
			AddRow("unfavorable", 3))

	counts, err := NewClickHouseAuditStore(db, "creditrisk."+AuditTable).CountByOutcome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.Outcome]int64{models.OutcomeFavorable: 7, models.OutcomeUnfavorable: 3}, counts)
}

func TestPredictionCache_Memory(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	pc := NewPredictionCache(mc, time.Minute)
	defer pc.Close()

	_, ok, err := pc.Get(ctx, "v1:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	want := models.Prediction{Class: 2, Proba: []float64{0.25, 0.75}}
	require.NoError(t, pc.Set(ctx, "v1:abc", want))

	got, ok, err := pc.Get(ctx, "v1:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPredictionCache_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	rc, err := cache.NewRedisCache(cache.WithRedisHost(host), cache.WithRedisPort(p), cache.WithRedisPrefix("creditrisk"))
	require.NoError(t, err)
	pc := NewPredictionCache(rc, time.Minute)
	defer pc.Close()

	want := models.Prediction{Class: 1, Proba: []float64{0.8, 0.2}}
	require.NoError(t, pc.Set(ctx, "v1:abc", want))
	assert.True(t, mr.Exists("creditrisk:prediction:v1:abc"))
	assert.Equal(t, time.Minute, mr.TTL("creditrisk:prediction:v1:abc"))

	got, ok, err := pc.Get(ctx, "v1:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	mr.SetError("LOADING")
	_, _, err = pc.Get(ctx, "v1:abc")
	assert.Error(t, err)
}
