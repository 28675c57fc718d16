package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:         "ch",
		Port:         9000,
		Database:     "creditrisk",
		User:         "default",
		Password:     "secret",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	assert.Equal(t,
		"clickhouse://default:secret@ch:9000/creditrisk?async_insert=1&dial_timeout=5s&max_execution_time=60&wait_for_async_insert=1",
		dsn)
}

func TestBuildDSN_HTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true})
	assert.Equal(t, "http://u:@ch:8123/db", dsn)
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	assert.Error(t, err)
}

func TestInitSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := NewFromDB(db)

	mock.ExpectExec("CREATE DATABASE IF NOT EXISTS creditrisk").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("syntax error"))

	err = c.InitSchema(context.Background(), []string{
		"CREATE DATABASE IF NOT EXISTS creditrisk",
		"CREATE TABLE broken",
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectClose()
	assert.NoError(t, c.Close())
}
