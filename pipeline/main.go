// Command pipeline runs the enrichment, export and merge stages over the
// news index. Each stage is idempotent: rerunning after an interruption picks
// up exactly the documents that were not finished.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yberrad/newsgraph/internal/elasticsearch"
	"github.com/yberrad/newsgraph/internal/geocode"
	"github.com/yberrad/newsgraph/internal/knowledge"
	"github.com/yberrad/newsgraph/internal/logger"
	"github.com/yberrad/newsgraph/internal/nlp"
)

var log *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Enrich the news index and build its export tables",
	Long: `pipeline annotates news documents with part-of-speech tags, named
entities, geocoded locations and knowledge-base summaries, then flattens the
annotations to CSV tables and merges them into the table the graph API reads.

Every stage only touches documents that do not carry its result yet, so any
stage can be rerun safely at any time.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./newsgraph.yaml)")
	pf.String("es-addr", "http://elasticsearch:9200", "Elasticsearch address")
	pf.String("es-index", "news", "Elasticsearch index")
	pf.String("csv-dir", "csv_files", "directory for export CSV files")
	pf.Int("page-size", 1000, "documents per scroll page during enrichment")
	pf.Int("export-page-size", 10000, "documents per scroll page during export")
	pf.Int("retries", 3, "retry attempts for capability calls")
	pf.String("nlp-addr", "http://localhost:8000", "tagging service address")
	pf.String("geocode-addr", "https://nominatim.openstreetmap.org", "geocoding service address")
	pf.String("geocode-user-agent", "newsgraph-pipeline", "User-Agent sent to the geocoding service")
	pf.Int("geocode-cache-size", 10000, "geocode cache capacity")
	pf.Duration("geocode-cache-ttl", 24*time.Hour, "geocode cache entry lifetime")
	pf.String("kb-addr", "https://fr.wikipedia.org", "knowledge base address")

	viper.BindPFlags(pf)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("newsgraph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("NEWSGRAPH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug("using config file", slog.String("path", viper.ConfigFileUsed()))
	}
}

// connectStore builds the Elasticsearch client and waits for connectivity
// with exponential backoff. Pipelines often start alongside the cluster.
func connectStore(ctx context.Context) (*elasticsearch.Client, error) {
	client, err := elasticsearch.New(viper.GetString("es-addr"), viper.GetString("es-index"), log)
	if err != nil {
		return nil, err
	}

	retryDelay := 2 * time.Second
	const maxRetries = 10

	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx)
		cancel()
		if err == nil {
			return client, nil
		}

		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", maxRetries),
			slog.Duration("retry_in", retryDelay),
		)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}

	return nil, fmt.Errorf("elasticsearch unreachable: %w", err)
}

func newTagger() nlp.Tagger {
	return nlp.NewHTTPClient(viper.GetString("nlp-addr"), viper.GetInt("retries"))
}

func newGeocoder() geocode.Geocoder {
	client := geocode.NewNominatimClient(
		viper.GetString("geocode-addr"),
		viper.GetString("geocode-user-agent"),
		viper.GetInt("retries"),
	)
	return geocode.NewCache(client, viper.GetInt("geocode-cache-size"), viper.GetDuration("geocode-cache-ttl"))
}

func newKnowledgeBase() knowledge.Base {
	return knowledge.NewWikipediaClient(viper.GetString("kb-addr"), viper.GetInt("retries"))
}

func main() {
	log = logger.New("pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("pipeline failed", slog.Any("err", err))
		os.Exit(1)
	}
}
