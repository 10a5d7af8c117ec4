package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := connectBaseWait << attempt
		minExpected := time.Duration(float64(base) * (1 - connectJitterRatio))
		maxExpected := time.Duration(float64(base) * (1 + connectJitterRatio))

		for i := 0; i < 20; i++ {
			d := connectBackoff(attempt)
			assert.GreaterOrEqual(t, d, minExpected)
			assert.LessOrEqual(t, d, maxExpected)
		}
	}
}

func TestConnectBackoff_NegativeAttempt(t *testing.T) {
	d := connectBackoff(-3)
	assert.LessOrEqual(t, d, time.Duration(float64(connectBaseWait)*(1+connectJitterRatio)))
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5433, User: "discovery", Password: "pw", DBName: "catalog", SSLMode: "require",
	}
	assert.Equal(t, "postgres://discovery:pw@db:5433/catalog?sslmode=require", cfg.DSN())
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(errStr("dial tcp 127.0.0.1:5432: connection refused")))
	assert.True(t, isConnectionError(errStr("i/o timeout")))
	assert.False(t, isConnectionError(errStr("syntax error at or near")))
	assert.False(t, isConnectionError(errStr("relation \"products\" does not exist")))
}

type errStr string

func (e errStr) Error() string { return string(e) }
