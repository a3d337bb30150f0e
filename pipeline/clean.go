package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yberrad/newsgraph/internal/export"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the export CSV tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("csv-dir")
		if err := export.RemoveExports(dir); err != nil {
			return err
		}
		log.Info("export tables removed", slog.String("dir", dir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
