package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"RPC_URL", "WS_PATH", "DEBUG", "DATABASE_URL", "CONTROLLER_IDENTITY",
		"ENFORCE_ACTIVE_GATE", "WATCH_ROUND", "CLOCK_SOURCE", "POLL_INTERVAL", "METRICS_ADDR"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "http://localhost:26657", cfg.RPCURL)
	assert.Equal(t, "/websocket", cfg.WSPath)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.EnforceGate)
	assert.Equal(t, ClockSourceChain, cfg.ClockSource)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.False(t, cfg.Persistent())
	assert.Empty(t, cfg.ControllerIdentity)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://curator:secret@db:5432/rounds")
	t.Setenv("ENFORCE_ACTIVE_GATE", "false")
	t.Setenv("CONTROLLER_IDENTITY", " ADMIN ")
	t.Setenv("WATCH_ROUND", "OWNER/memes")
	t.Setenv("POLL_INTERVAL", "750ms")
	t.Setenv("CLOCK_SOURCE", "System")

	cfg := Load()
	assert.Equal(t, DatabaseSchemePostgres, cfg.DBDialect)
	assert.True(t, cfg.Persistent())
	assert.False(t, cfg.EnforceGate)
	assert.Equal(t, "ADMIN", cfg.ControllerIdentity)
	assert.Equal(t, "OWNER/memes", cfg.WatchRound)
	assert.Equal(t, 750*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, ClockSourceSystem, cfg.ClockSource)
}

func TestLoad_BadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://root@db/rounds")
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("CLOCK_SOURCE", "sundial")

	cfg := Load()
	assert.False(t, cfg.Persistent())
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, ClockSourceChain, cfg.ClockSource)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t,
		"postgresql://curator@db:5432/rounds",
		maskDSN(DatabaseSchemePostgres, "postgresql://curator:secret@db:5432/rounds"))
	assert.Equal(t,
		"host=db user=curator password=***",
		maskDSN(DatabaseSchemePostgres, "host=db user=curator password=secret"))
}
