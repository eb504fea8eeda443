package store

import "time"

// Config enables and configures each backend
type Config struct {
	// AppName is reported to ClickHouse as client info
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures the Postgres pool
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// ConnectAttempts and PingTimeout bound the wait for a booting database
	ConnectAttempts int
	PingTimeout     time.Duration
}

// CHConfig configures the ClickHouse connection
type CHConfig struct {
	Enabled bool
	URL     string
	LogSQL  bool

	// Role is reported as client info, e.g. "api" or "analyze"
	Role string
}
