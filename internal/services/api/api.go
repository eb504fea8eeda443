// Package api mounts the claimguard HTTP api: meta endpoints, run lifecycle and results
package api

import (
	"strings"
	"time"

	"claimguard/internal/modkit"
	"claimguard/internal/modkit/httpkit"
	"claimguard/internal/modkit/swaggerkit"
	"claimguard/internal/platform/config"
	"claimguard/internal/platform/logger"
	"claimguard/internal/platform/metrics"
	phttp "claimguard/internal/platform/net/http"
	"claimguard/internal/platform/net/middleware"
	"claimguard/internal/platform/store"

	amod "claimguard/internal/services/analysis/module"
	metahttp "claimguard/internal/services/api/meta/http"
	metamod "claimguard/internal/services/api/meta/module"
	runsmod "claimguard/internal/services/api/runs/module"
)

type Options struct {
	// Config is the root config, modules take their own prefixes from it
	Config config.Conf
	Store  *store.Store
	Logger *logger.Logger

	EnableSwagger  bool
	EnableProfiler bool
	EnableMetrics  bool

	// Auth guards the run routes, nil leaves them open
	Auth middleware.AuthPort
}

// Mount mounts the api on r and returns the analysis module,
// which the caller migrates before serving and drains on shutdown
func Mount(r phttp.Router, opt Options) *amod.Module {
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Store != nil {
		deps.PG, deps.CH = opt.Store.PG, opt.Store.CH
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// analysis has no routes, it only owns the Runner and Query ports
	analysis := amod.New(deps)
	ap := modkit.MustPortsOf[amod.Ports](analysis)
	ao := analysis.Options()

	meta := metamod.New(deps, metahttp.Engine{
		Trees:      ao.Trees,
		SampleCap:  ao.SampleCap,
		Threshold:  ao.Threshold,
		RecordSink: ao.RecordSink,
	})
	runs := runsmod.New(deps, modkit.WithPorts(runsmod.Ports{Runner: ap.Runner, Query: ap.Query}))

	stack := httpkit.CommonStack(stackOptions(opt.Config.Prefix("CORE_API_")))
	if opt.EnableMetrics {
		r.Handle("/metrics", metrics.Handler())
		stack = append(stack, metrics.Middleware)
	}
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, stack, func(v1 httpkit.Router) {
		meta.MountRoutes(v1)
		httpkit.Protected(v1, opt.Auth, runs.MountRoutes)
	})
	return analysis
}

// stackOptions reads CORS_ORIGINS, SLOW_REQUEST and REQUEST_TIMEOUT
func stackOptions(c config.Conf) httpkit.StackOptions {
	var origins []string
	for _, o := range strings.Split(c.MayString("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return httpkit.StackOptions{
		CORSOrigins: origins,
		SlowRequest: c.MayDuration("SLOW_REQUEST", 2*time.Second),
		Timeout:     c.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}
