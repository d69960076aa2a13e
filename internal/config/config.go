package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DatabaseSchemePostgres is the postgres database scheme identifier
	DatabaseSchemePostgres = "postgres"

	// ClockSourceChain settles against the time of each new block.
	ClockSourceChain = "chain"
	// ClockSourceSystem settles against the local clock every PollInterval.
	ClockSourceSystem = "system"

	defaultPollInterval = 5 * time.Second
)

type Config struct {
	RPCURL    string
	WSPath    string
	DBDialect string // postgres only
	DBDsn     string // DSN string passed to GORM driver
	Debug     bool   // if true: show logs, no TUI; if false: no logs, show TUI

	// ControllerIdentity may toggle rounds on and off; empty means each
	// round's owner does.
	ControllerIdentity string
	EnforceGate        bool          // participant calls on an inactive round fail
	WatchRound         string        // owner/name shown on the dashboard
	ClockSource        string        // chain or system
	PollInterval       time.Duration // system clock tick and dashboard refresh
	MetricsAddr        string        // optional: serve /metrics here (e.g., :9464)
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %s\n", key, v, def)
		return def
	}
	return d
}

// parseDatabaseURL interprets DATABASE_URL and returns (dialect, dsn).
// Supported schemes: postgres, postgresql.
func parseDatabaseURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case DatabaseSchemePostgres, "postgresql":
		// GORM postgres driver accepts URL DSN as-is
		return DatabaseSchemePostgres, databaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func Load() Config {
	cfg := Config{
		RPCURL:             getenv("RPC_URL", "http://localhost:26657"),
		WSPath:             getenv("WS_PATH", "/websocket"),
		Debug:              getenvBool("DEBUG", false),
		ControllerIdentity: strings.TrimSpace(os.Getenv("CONTROLLER_IDENTITY")),
		EnforceGate:        getenvBool("ENFORCE_ACTIVE_GATE", true),
		WatchRound:         strings.TrimSpace(os.Getenv("WATCH_ROUND")),
		ClockSource:        strings.ToLower(getenv("CLOCK_SOURCE", ClockSourceChain)),
		PollInterval:       getenvDuration("POLL_INTERVAL", defaultPollInterval),
		MetricsAddr:        strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		if dialect, dsn, err := parseDatabaseURL(dbURL); err == nil {
			cfg.DBDialect = dialect
			cfg.DBDsn = dsn
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid DATABASE_URL, disabling persistence: %v\n", err)
		}
	}

	if cfg.ClockSource != ClockSourceChain && cfg.ClockSource != ClockSourceSystem {
		fmt.Fprintf(os.Stderr, "warning: unknown CLOCK_SOURCE %q, using %s\n", cfg.ClockSource, ClockSourceChain)
		cfg.ClockSource = ClockSourceChain
	}

	return cfg
}

// Persistent reports whether DATABASE_URL selected a database.
func (c Config) Persistent() bool {
	return c.DBDialect != "" && c.DBDsn != ""
}

func (c Config) String() string {
	return fmt.Sprintf("rpc=%s ws_path=%s db=%s", c.RPCURL, c.WSPath, c.DBDialect)
}

// DebugString returns a human-friendly configuration string with masked secrets.
func (c Config) DebugString() string {
	return fmt.Sprintf(
		"rpc=%s ws_path=%s db=%s dsn=%s controller=%q enforce_gate=%t watch=%q clock=%s poll=%s metrics=%q",
		c.RPCURL,
		c.WSPath,
		c.DBDialect,
		maskDSN(c.DBDialect, c.DBDsn),
		c.ControllerIdentity,
		c.EnforceGate,
		c.WatchRound,
		c.ClockSource,
		c.PollInterval,
		c.MetricsAddr,
	)
}

func maskDSN(dialect, dsn string) string {
	switch strings.ToLower(dialect) {
	case DatabaseSchemePostgres:
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
			if u.User != nil {
				username := u.User.Username()
				u.User = url.User(username)
			}
			return u.String()
		}
		// Fallback for DSN as key-value list
		parts := strings.Fields(dsn)
		for i, p := range parts {
			lower := strings.ToLower(p)
			if strings.HasPrefix(lower, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	default:
		return dsn
	}
}
