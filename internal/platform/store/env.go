package store

import (
	"time"

	"claimguard/internal/platform/config"
)

// ConfigFromEnv reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* from root.
// A backend is enabled only when its DBURL is set and ENABLED is not false,
// so binaries run against the in memory store without any database
func ConfigFromEnv(root config.Conf, role string) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CLICKHOUSE_")

	pgURL := pg.MayString("DBURL", "")
	chURL := ch.MayString("DBURL", "")

	return Config{
		AppName: "claimguard-" + role,
		PG: PGConfig{
			Enabled:     pgURL != "" && pg.MayBool("ENABLED", true),
			URL:         pgURL,
			MaxConns:    int32(pg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pg.MayInt("SLOW_MS", 500),
			LogSQL:      pg.MayBool("LOG_SQL", false),

			ConnectAttempts: pg.MayInt("CONNECT_ATTEMPTS", 20),
			PingTimeout:     pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled: chURL != "" && ch.MayBool("ENABLED", true),
			URL:     chURL,
			LogSQL:  ch.MayBool("LOG_SQL", false),
			Role:    role,
		},
	}
}
