package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yberrad/newsgraph/internal/elasticsearch"
)

var loadBatchSize int

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Bulk-index a newline-delimited JSON corpus",
	Long: `Load reads one JSON document per line and bulk-indexes the corpus.
Every document gets a generated id. A malformed line aborts the load: a
partially parsed corpus would silently skew every downstream table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := connectStore(cmd.Context())
		if err != nil {
			return err
		}
		return loadFile(cmd, store, args[0])
	},
}

func init() {
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 500, "documents per bulk request")
	rootCmd.AddCommand(loadCmd)
}

func loadFile(cmd *cobra.Command, store *elasticsearch.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var batch []elasticsearch.BulkDoc
	total := 0
	line := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.BulkIndex(cmd.Context(), batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		if !json.Valid(raw) {
			return fmt.Errorf("malformed JSON on line %d of %s", line, path)
		}

		doc := make([]byte, len(raw))
		copy(doc, raw)
		batch = append(batch, elasticsearch.BulkDoc{ID: uuid.NewString(), Source: doc})

		if len(batch) >= loadBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}

	if err := flush(); err != nil {
		return err
	}

	log.Info("corpus loaded", slog.String("file", path), slog.Int("documents", total))
	return nil
}
