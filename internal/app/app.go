// Package app assembles the matching components from configuration. The
// worker manager and the CLI share these builders.
package app

import (
	"fmt"
	"time"

	"organmatch/internal/common/config"
	"organmatch/internal/common/database"
	"organmatch/internal/common/logger"
	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/engine"
	"organmatch/internal/matching/features"
	"organmatch/internal/matching/geo"
	"organmatch/internal/matching/labeler"
	"organmatch/internal/matching/oracle"
	"organmatch/internal/repository"
)

// Resolver loads the region table, falling back to the built-in one.
func Resolver(ref config.ReferenceConfig) (*geo.Resolver, error) {
	if ref.RegionsFile == "" {
		return geo.NewResolver(geo.DefaultTable()), nil
	}
	table, err := geo.LoadTable(ref.RegionsFile)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	return geo.NewResolver(table), nil
}

// Oracle selects the remote scorer when a URL is configured and the local
// artifact otherwise. Both are wrapped with latency metrics.
func Oracle(m config.ModelConfig) (oracle.Oracle, error) {
	if m.RemoteURL != "" {
		timeout := config.GetDuration(m.RemoteTimeoutMs)
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		return oracle.WithMetrics(oracle.NewRemoteOracle(m.RemoteURL, timeout), "remote"), nil
	}
	if m.ArtifactPath == "" {
		return nil, fmt.Errorf("no model artifact or remote oracle configured")
	}
	o, err := oracle.LoadArtifact(m.ArtifactPath)
	if err != nil {
		return nil, err
	}
	return oracle.WithMetrics(o, "artifact"), nil
}

func Rules(m config.MatchingConfig) compatibility.Rules {
	return compatibility.Rules{
		AgeWindowYears: m.AgeWindowYears,
		MaxDistanceKm:  m.MaxDistanceKm,
		MinHealthScore: m.MinHealthScore,
	}
}

func Selection(m config.MatchingConfig) engine.Selection {
	return engine.Selection{Threshold: m.ProbabilityThreshold, TopK: m.TopK}
}

func Engine(m config.MatchingConfig, resolver *geo.Resolver, o oracle.Oracle) *engine.Engine {
	filter := compatibility.NewFilter(Rules(m), resolver)
	return engine.New(filter, features.NewBuilder(resolver), o, Selection(m))
}

func Labeler(cfg *config.Config, resolver *geo.Resolver) *labeler.Labeler {
	filter := compatibility.NewFilter(Rules(cfg.Matching), resolver)
	return labeler.New(filter, labeler.Options{
		Concurrency:           cfg.Labeler.Concurrency,
		KeepGeographyFailures: cfg.Labeler.KeepGeographyFailures,
	})
}

// Stores holds the storage clients opened for the configured donor source.
type Stores struct {
	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
}

// DonorSource picks the pool backend named by matching.donor_source and, when
// a cache TTL is set, fronts it with the redis cache.
func DonorSource(cfg *config.Config, stores Stores, log logger.Logger) (repository.DonorSource, error) {
	var source repository.DonorSource
	switch cfg.Matching.DonorSource {
	case config.DonorSourcePostgres:
		if stores.Postgres == nil {
			return nil, fmt.Errorf("donor source postgres: no connection")
		}
		source = repository.NewPostgresStore(stores.Postgres.DB)
	case config.DonorSourceElasticsearch:
		if stores.Elasticsearch == nil {
			return nil, fmt.Errorf("donor source elasticsearch: no connection")
		}
		source = repository.NewSearchDonorSource(stores.Elasticsearch.Client, cfg.Database.Elasticsearch.DonorIndex)
	case config.DonorSourceCSV:
		store, err := repository.OpenCSVStore(cfg.Matching.DonorCSV, "")
		if err != nil {
			return nil, err
		}
		source = store
	default:
		return nil, fmt.Errorf("unknown donor source %q", cfg.Matching.DonorSource)
	}

	if cfg.Matching.CacheTTL > 0 && stores.Redis != nil {
		ttl := time.Duration(cfg.Matching.CacheTTL) * time.Second
		source = repository.NewCachedDonorSource(source, stores.Redis.Client, ttl, log)
	}
	return source, nil
}
