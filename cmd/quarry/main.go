package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cmorrow/quarry/internal/app"
)

// resolveConfig constructs an app.Config from viper's merged view of
// defaults, config file, environment, and bound flags.
func resolveConfig(cmd *cobra.Command) app.Config {
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")

	return app.Config{
		CorpusDir:      viper.GetString("corpus.dir"),
		CorpusPattern:  viper.GetString("corpus.pattern"),
		IndexDir:       viper.GetString("index.dir"),
		FlushThreshold: viper.GetInt("indexer.flush_threshold"),
		LargeCorpus:    viper.GetBool("indexer.large_corpus"),
		CacheCapacity:  viper.GetInt("search.cache_capacity"),
		MaxResults:     viper.GetInt("search.max_results"),
		Quiet:          quiet,
		Debug:          debug,
	}
}

// setupLogger configures the default slog logger based on debug mode.
func setupLogger(debug bool) {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// initConfig wires viper: defaults, optional quarry.yaml in the working
// directory, and QUARRY_* environment overrides.
func initConfig() {
	viper.SetDefault("corpus.dir", "DEV")
	viper.SetDefault("corpus.pattern", "**/*")
	viper.SetDefault("index.dir", ".")
	viper.SetDefault("indexer.flush_threshold", 0)
	viper.SetDefault("indexer.large_corpus", false)
	viper.SetDefault("search.cache_capacity", 0)
	viper.SetDefault("search.max_results", 5)

	viper.SetConfigName("quarry")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("QUARRY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: ignoring config file: %v\n", err)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Build and query a TF-IDF inverted index over a web corpus",
	Long: `Quarry builds a partitioned on-disk inverted index from a corpus of
line-delimited JSON web documents, and answers ranked queries against it.

Examples:
  quarry build --corpus DEV
  quarry search -n 10`,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index the corpus and write the partitioned index to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := resolveConfig(cmd)
		setupLogger(cfg.Debug)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		stats, err := app.Build(ctx, cfg)
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		fmt.Printf("files processed: %d\n", stats.FilesProcessed)
		fmt.Printf("documents indexed: %d\n", stats.DocsIndexed)
		fmt.Printf("unique tokens: %d\n", stats.UniqueTokens)
		fmt.Printf("total disk size (bytes): %d (%s)\n",
			stats.DiskSizeBytes, humanize.Bytes(uint64(stats.DiskSizeBytes)))
		fmt.Printf("elapsed: %s\n", stats.Elapsed.Round(time.Millisecond))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Interactively query a built index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := resolveConfig(cmd)
		setupLogger(cfg.Debug)
		return app.RunSearch(cfg)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("index-dir", ".", "Directory holding the index artifacts")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")
	_ = viper.BindPFlag("index.dir", rootCmd.PersistentFlags().Lookup("index-dir"))

	buildCmd.Flags().StringP("corpus", "c", "DEV", "Corpus root directory")
	buildCmd.Flags().String("pattern", "**/*", "Glob selecting corpus files under the root")
	buildCmd.Flags().Int("flush-threshold", 0, "Accumulator byte budget before a partial flush (default 3 MB)")
	buildCmd.Flags().Bool("large", false, "Large-corpus mode (1 GB flush threshold)")
	_ = viper.BindPFlag("corpus.dir", buildCmd.Flags().Lookup("corpus"))
	_ = viper.BindPFlag("corpus.pattern", buildCmd.Flags().Lookup("pattern"))
	_ = viper.BindPFlag("indexer.flush_threshold", buildCmd.Flags().Lookup("flush-threshold"))
	_ = viper.BindPFlag("indexer.large_corpus", buildCmd.Flags().Lookup("large"))

	searchCmd.Flags().IntP("max-results", "n", 5, "Maximum number of URLs to display per query")
	searchCmd.Flags().Int("cache-capacity", 0, "Posting-list cache capacity (default 1000)")
	_ = viper.BindPFlag("search.max_results", searchCmd.Flags().Lookup("max-results"))
	_ = viper.BindPFlag("search.cache_capacity", searchCmd.Flags().Lookup("cache-capacity"))

	rootCmd.AddCommand(buildCmd, searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
