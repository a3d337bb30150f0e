package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yberrad/newsgraph/internal/export"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: enrich, export, merge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := connectStore(cmd.Context())
		if err != nil {
			return err
		}

		if err := runEnrich(cmd, store, "all"); err != nil {
			return err
		}

		dir := viper.GetString("csv-dir")
		if err := export.RemoveExports(dir); err != nil {
			return err
		}

		exporter := &export.Exporter{
			Store:    store,
			Log:      log,
			Dir:      dir,
			PageSize: viper.GetInt("export-page-size"),
		}

		for _, kind := range []export.EntityType{export.TypeOrganization, export.TypeLocation, export.TypePerson} {
			if err := exporter.ExportEntities(cmd.Context(), kind); err != nil {
				return err
			}
		}
		if err := exporter.ExportLinks(cmd.Context()); err != nil {
			return err
		}

		return export.Merge(dir)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
