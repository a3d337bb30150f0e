package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yberrad/newsgraph/internal/export"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Outer-join the entity tables into NERs.csv",
	Long: `Merge combines organizations.csv, locations.csv and persons.csv on
(id, date) into NERs.csv. Every id seen in any table keeps a row; entity
columns missing for that id stay empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("csv-dir")
		if err := export.Merge(dir); err != nil {
			return err
		}
		log.Info("merge finished", slog.String("dir", dir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
