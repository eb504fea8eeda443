// Package modkit wires api modules: shared deps go in, routes and ports come out
package modkit

import (
	"claimguard/internal/modkit/httpkit"
	"claimguard/internal/modkit/repokit"
	"claimguard/internal/platform/config"
	"claimguard/internal/platform/logger"
	"claimguard/internal/platform/store"
)

// Deps are handed to every module. PG and CH are nil when the backend is disabled
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// Module is an api module
type Module interface {
	Name() string

	// MountRoutes registers the module's routes, usually under its own prefix
	MountRoutes(r httpkit.Router)

	// Ports exposes what other modules may call, nil when nothing
	Ports() any
}
