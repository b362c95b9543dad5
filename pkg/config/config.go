// Package config loads nestrelay's runtime configuration from
// environment variables (prefix NESTR_), following the same
// go-simpler.org/env plus adrg/xdg pattern used throughout this
// codebase's ancestry for locating default data directories.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	"go-simpler.org/env"
)

// C holds every tunable the relay reads at startup.
type C struct {
	AppName string `env:"APP_NAME" default:"nestrelay"`

	Listen        string `env:"LISTEN" default:"0.0.0.0:3334"`
	AdminListen   string `env:"ADMIN_LISTEN" default:"0.0.0.0:3335"`
	MetricsListen string `env:"METRICS_LISTEN" default:"0.0.0.0:9334"`

	DataDir string `env:"DATA_DIR"`

	LogLevel string `env:"LOG_LEVEL" default:"info"`

	RelayName        string `env:"RELAY_NAME" default:"nestrelay"`
	RelayDescription string `env:"RELAY_DESCRIPTION" default:"a Nostr relay"`
	RelayContact     string `env:"RELAY_CONTACT"`
	RelayPubkey      string `env:"RELAY_PUBKEY"`

	Owners    []string `env:"OWNERS"`
	Allowlist []string `env:"ALLOWLIST"`
	Blocklist []string `env:"BLOCKLIST"`

	MaxContentLength int   `env:"MAX_CONTENT_LENGTH" default:"65536"`
	MaxTags          int   `env:"MAX_TAGS" default:"2000"`
	MaxTagValueLen   int   `env:"MAX_TAG_VALUE_LENGTH" default:"8192"`
	FutureDriftSecs  int64 `env:"FUTURE_DRIFT_SECONDS" default:"900"`
	PastDriftSecs    int64 `env:"PAST_DRIFT_SECONDS" default:"0"`

	MaxSubscriptionsPerConn int `env:"MAX_SUBSCRIPTIONS_PER_CONN" default:"20"`
	MaxFiltersPerSub        int `env:"MAX_FILTERS_PER_SUB" default:"10"`
	DefaultQueryLimit       int `env:"DEFAULT_QUERY_LIMIT" default:"500"`

	RequireAuth bool `env:"REQUIRE_AUTH" default:"false"`

	ShutdownGraceSeconds int `env:"SHUTDOWN_GRACE_SECONDS" default:"10"`

	CORSOrigins []string `env:"CORS_ORIGINS" default:"*"`
}

// New loads configuration from the environment, filling DataDir from the
// XDG data directory when unset.
func New() (*C, error) {
	c := &C{}
	if err := env.Load(c, &env.Options{Prefix: "NESTR_"}); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		dir, err := xdg.DataFile(filepath.Join(c.AppName, "db"))
		if err != nil {
			return nil, fmt.Errorf("resolving default data dir: %w", err)
		}
		c.DataDir = dir
	}
	return c, nil
}

// PrintEnv prints every recognized environment variable and its current
// value to standard output.
func PrintEnv(c *C) {
	for _, kv := range env.Usage(c, &env.Options{Prefix: "NESTR_"}) {
		fmt.Println(kv)
	}
}
