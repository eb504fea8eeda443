// Package ingest holds adapter shims for the analysis ingest ports
package ingest

import (
	"time"

	"claimguard/internal/adapters/ingest/claimsfile"
	"claimguard/internal/platform/config"
	"claimguard/internal/services/analysis/domain"
)

// NewFetcher builds a domain.Fetcher from CORE_ANALYSIS_* settings.
// Local paths open directly; remote objects go through the disk cache when
// CACHE_DIR is set and stream uncached otherwise
func NewFetcher(cfg config.Conf) domain.Fetcher {
	an := cfg.Prefix("CORE_ANALYSIS_")

	httpTO := an.MayDuration("HTTP_TIMEOUT", 0) // 0 == no client timeout
	base := claimsfile.NewHTTPFetcherWithTimeout(httpTO)

	var remote claimsfile.Fetcher = base
	if dir := an.MayString("CACHE_DIR", ""); dir != "" {
		retainDays := an.MayInt("CACHE_RETAIN_DAYS", 0)
		retainBytes := int64(an.MayInt("CACHE_RETAIN_BYTES", 0))
		remote = claimsfile.NewCachedFetcher(
			dir,
			base,
			claimsfile.WithRevalidate(an.MayBool("CACHE_REVALIDATE", true)),
			claimsfile.WithRetention(time.Duration(retainDays)*24*time.Hour, retainBytes),
		)
	}

	return claimsfile.SchemeFetcher{Local: claimsfile.FileFetcher{}, Remote: remote}
}
