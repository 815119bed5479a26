package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"organmatch/internal/app"
	"organmatch/internal/common/config"
	"organmatch/internal/common/database"
	"organmatch/internal/common/logger"
	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/geo"
	"organmatch/internal/matching/labeler"
	"organmatch/internal/matching/ranking"
	"organmatch/internal/matching/service"
	"organmatch/internal/models"
	"organmatch/internal/repository"
	"organmatch/pkg/registry"

	"github.com/spf13/cobra"
)

func resolverFlag(cmd *cobra.Command) (*geo.Resolver, error) {
	path, _ := cmd.Flags().GetString("regions")
	return app.Resolver(config.ReferenceConfig{RegionsFile: path})
}

func cliLogger(cmd *cobra.Command) logger.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.NewStructured(level, "console", "stderr")
}

// matchingFlags registers the eligibility and ranking knobs shared by the
// offline commands.
func matchingFlags(cmd *cobra.Command, m *config.MatchingConfig) {
	cmd.Flags().IntVar(&m.AgeWindowYears, "age-window", compatibility.DefaultAgeWindowYears, "maximum donor/receiver age gap in years")
	cmd.Flags().Float64Var(&m.MaxDistanceKm, "max-distance", compatibility.DefaultMaxDistanceKm, "maximum distance in km without arranged transport")
	cmd.Flags().IntVar(&m.MinHealthScore, "min-health", 0, "minimum organ health score (0 disables)")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// createLabelCmd labels every donor/receiver pair from CSV files, or from
// PostgreSQL with --from-db, in which case the batch is also stored.
func createLabelCmd() *cobra.Command {
	var (
		donorsPath, receiversPath, outPath string
		fromDB                             bool
		cfg                                config.Config
	)

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Generate labeled training pairs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := cliLogger(cmd)

			if fromDB {
				return labelFromDatabase(ctx, cmd, &cfg, log)
			}

			resolver, err := resolverFlag(cmd)
			if err != nil {
				return err
			}
			l := app.Labeler(&cfg, resolver)

			if donorsPath == "" || receiversPath == "" {
				return fmt.Errorf("--donors and --receivers are required")
			}
			store, err := repository.OpenCSVStore(donorsPath, receiversPath)
			if err != nil {
				return err
			}

			rows, run, err := service.NewTrainingService(store, nil, l, log).Label(ctx)
			if err != nil {
				return err
			}

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			defer out.Close()
			if err := labeler.WriteCSV(out, rows); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (%d positive, %d negative)\n",
				run.Rows, outPath, run.Positives, run.Negatives)
			return nil
		},
	}

	cmd.Flags().StringVar(&donorsPath, "donors", "", "donor CSV file")
	cmd.Flags().StringVar(&receiversPath, "receivers", "", "receiver CSV file")
	cmd.Flags().StringVar(&outPath, "out", "match_data.csv", "output CSV file")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "read from and store the batch in PostgreSQL; settings come from configs/config.yaml unless a flag is set")
	cmd.Flags().IntVar(&cfg.Labeler.Concurrency, "concurrency", 0, "donor workers (0 uses GOMAXPROCS)")
	cmd.Flags().BoolVar(&cfg.Labeler.KeepGeographyFailures, "keep-geography-failures", false, "keep pairs failing only the geography clause, labeled 0")
	matchingFlags(cmd, &cfg.Matching)
	return cmd
}

func labelFromDatabase(ctx context.Context, cmd *cobra.Command, flagCfg *config.Config, log logger.Logger) error {
	appCfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg := labelConfig(cmd, flagCfg, appCfg)

	resolver, err := app.Resolver(cfg.Reference)
	if err != nil {
		return err
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		return err
	}

	store := repository.NewPostgresStore(pg.DB)
	run, err := service.NewTrainingService(store, store, app.Labeler(cfg, resolver), log).Run(ctx)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), run)
}

// labelConfig starts from the loaded configuration, the one the
// label-training-pairs worker uses, and applies only the flags set on the
// command line.
func labelConfig(cmd *cobra.Command, flagCfg, fileCfg *config.Config) *config.Config {
	cfg := *fileCfg
	flags := cmd.Flags()
	if flags.Changed("age-window") {
		cfg.Matching.AgeWindowYears = flagCfg.Matching.AgeWindowYears
	}
	if flags.Changed("max-distance") {
		cfg.Matching.MaxDistanceKm = flagCfg.Matching.MaxDistanceKm
	}
	if flags.Changed("min-health") {
		cfg.Matching.MinHealthScore = flagCfg.Matching.MinHealthScore
	}
	if flags.Changed("concurrency") {
		cfg.Labeler.Concurrency = flagCfg.Labeler.Concurrency
	}
	if flags.Changed("keep-geography-failures") {
		cfg.Labeler.KeepGeographyFailures = flagCfg.Labeler.KeepGeographyFailures
	}
	if flags.Changed("regions") {
		cfg.Reference.RegionsFile, _ = flags.GetString("regions")
	}
	return &cfg
}

func createMatchCmd() *cobra.Command {
	var (
		donorsPath, artifactPath, receiverJSON string
		cfg                                    config.Config
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank donors for one receiver",
		Example: `  match-cli match --donors donors.csv --artifact configs/model/match_model.json \
    --receiver '{"age":40,"location":"Maharashtra","bloodGroup":"AB+","organNeeded":"Kidney","tissueType":"Type1","urgency":2}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req service.MatchRequest
			if err := json.Unmarshal([]byte(receiverJSON), &req.Receiver); err != nil {
				return fmt.Errorf("parse --receiver: %w", err)
			}

			resolver, err := resolverFlag(cmd)
			if err != nil {
				return err
			}
			o, err := app.Oracle(config.ModelConfig{ArtifactPath: artifactPath, RemoteURL: cfg.Model.RemoteURL, RemoteTimeoutMs: 5000})
			if err != nil {
				return err
			}
			store, err := repository.OpenCSVStore(donorsPath, "")
			if err != nil {
				return err
			}

			svc := service.NewMatchService(app.Engine(cfg.Matching, resolver, o), store, cliLogger(cmd))
			res, err := svc.Match(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&donorsPath, "donors", "", "donor CSV file")
	cmd.Flags().StringVar(&artifactPath, "artifact", "configs/model/match_model.json", "model artifact JSON")
	cmd.Flags().StringVar(&cfg.Model.RemoteURL, "oracle-url", "", "remote scoring endpoint (overrides --artifact)")
	cmd.Flags().StringVar(&receiverJSON, "receiver", "", "receiver as JSON")
	cmd.Flags().Float64Var(&cfg.Matching.ProbabilityThreshold, "threshold", ranking.DefaultThreshold, "minimum match probability")
	cmd.Flags().IntVar(&cfg.Matching.TopK, "top-k", ranking.DefaultTopK, "maximum matches (0 for all)")
	matchingFlags(cmd, &cfg.Matching)
	_ = cmd.MarkFlagRequired("donors")
	_ = cmd.MarkFlagRequired("receiver")
	return cmd
}

func createEligibilityCmd() *cobra.Command {
	var (
		donorJSON, receiverJSON string
		cfg                     config.Config
	)

	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Explain whether one donor can serve one receiver",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req service.EligibilityRequest
			if err := json.Unmarshal([]byte(donorJSON), &req.Donor); err != nil {
				return fmt.Errorf("parse --donor: %w", err)
			}
			if err := json.Unmarshal([]byte(receiverJSON), &req.Receiver); err != nil {
				return fmt.Errorf("parse --receiver: %w", err)
			}

			resolver, err := resolverFlag(cmd)
			if err != nil {
				return err
			}
			svc := service.NewMatchService(app.Engine(cfg.Matching, resolver, nil), nil, cliLogger(cmd))
			res, err := svc.CheckEligibility(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&donorJSON, "donor", "", "donor as JSON")
	cmd.Flags().StringVar(&receiverJSON, "receiver", "", "receiver as JSON")
	matchingFlags(cmd, &cfg.Matching)
	_ = cmd.MarkFlagRequired("donor")
	_ = cmd.MarkFlagRequired("receiver")
	return cmd
}

func createRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List known regions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := resolverFlag(cmd)
			if err != nil {
				return err
			}
			for _, name := range resolver.Regions() {
				c, _ := resolver.Resolve(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %9.4f %9.4f\n", name, c.Lat, c.Lon)
			}
			return nil
		},
	}
}

func createDistanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance <from> <to>",
		Short: "Great-circle distance between two regions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := resolverFlag(cmd)
			if err != nil {
				return err
			}
			d := resolver.Distance(args[0], args[1])
			if !d.Resolvable() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: unresolvable\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %.2f km\n", args[0], args[1], d.Km())
			return nil
		},
	}
}

// createImportCmd loads CSV datasets into PostgreSQL.
func createImportCmd() *cobra.Command {
	var donorsPath, receiversPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import donor and receiver CSV files into PostgreSQL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if donorsPath == "" && receiversPath == "" {
				return fmt.Errorf("nothing to import: set --donors and/or --receivers")
			}
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			store := repository.NewPostgresStore(pg.DB)

			if donorsPath != "" {
				csvStore, err := repository.OpenCSVStore(donorsPath, "")
				if err != nil {
					return err
				}
				donors, _ := csvStore.AllDonors(ctx)
				if err := store.UpsertDonors(ctx, donors); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d donors\n", len(donors))
				invalidateCache(ctx, cfg, donors, cliLogger(cmd))
			}
			if receiversPath != "" {
				f, err := os.Open(receiversPath)
				if err != nil {
					return err
				}
				defer f.Close()
				receivers, err := repository.ReadReceiversCSV(f)
				if err != nil {
					return err
				}
				if err := store.UpsertReceivers(ctx, receivers); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d receivers\n", len(receivers))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&donorsPath, "donors", "", "donor CSV file")
	cmd.Flags().StringVar(&receiversPath, "receivers", "", "receiver CSV file")
	return cmd
}

// invalidateCache drops cached pools for the organs just written. A missing
// or unreachable redis only produces a warning.
func invalidateCache(ctx context.Context, cfg *config.Config, donors []models.Donor, log logger.Logger) {
	if cfg.Matching.CacheTTL <= 0 || cfg.Database.Redis.Address == "" {
		return
	}
	rc, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Warn("cache invalidation skipped", map[string]interface{}{"error": err})
		return
	}
	defer rc.Close()

	seen := map[string]bool{}
	var organs []string
	for _, d := range donors {
		if !seen[d.Organ] {
			seen[d.Organ] = true
			organs = append(organs, d.Organ)
		}
	}

	cache := repository.NewCachedDonorSource(nil, rc.Client, 0, log)
	if err := cache.Invalidate(ctx, organs...); err != nil {
		log.Warn("cache invalidation failed", map[string]interface{}{"error": err})
	}
}

// createIndexCmd pushes a donor CSV into the Elasticsearch donor index.
func createIndexCmd() *cobra.Command {
	var donorsPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index donors into Elasticsearch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			index := cfg.Database.Elasticsearch.DonorIndex
			if err := es.EnsureIndex(ctx, index, database.DonorIndexMapping); err != nil {
				return err
			}

			store, err := repository.OpenCSVStore(donorsPath, "")
			if err != nil {
				return err
			}
			donors, _ := store.AllDonors(ctx)

			if err := repository.NewSearchDonorSource(es.Client, index).IndexDonors(ctx, donors); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d donors into %s\n", len(donors), index)
			invalidateCache(ctx, cfg, donors, cliLogger(cmd))
			return nil
		},
	}

	cmd.Flags().StringVar(&donorsPath, "donors", "", "donor CSV file")
	_ = cmd.MarkFlagRequired("donors")
	return cmd
}

// createActivitiesCmd prints, exports or validates the task-type catalog.
func createActivitiesCmd() *cobra.Command {
	var (
		out      string
		validate string
	)
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Show the catalog of Zeebe task types served by the workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if validate != "" {
				reg, err := registry.LoadRegistry(validate)
				if err != nil {
					return err
				}
				if err := reg.Validate(); err != nil {
					return fmt.Errorf("%s: %w", validate, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d activities valid\n", validate, len(reg.Activities))
				return nil
			}

			reg := registry.Default()
			if out != "" {
				if err := reg.Save(out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d activities to %s\n", len(reg.Activities), out)
				return nil
			}
			for _, a := range reg.Activities {
				fmt.Fprintf(cmd.OutOrStdout(), "%-26s %-14s timeout=%-4s errors=%v\n", a.TaskType, a.Category, a.Timeout, a.ErrorCodes)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the catalog as JSON to this path")
	cmd.Flags().StringVar(&validate, "validate", "", "validate a catalog JSON file instead of printing")
	return cmd
}
