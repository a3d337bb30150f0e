package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yberrad/newsgraph/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Rebuild the entity CSV tables from the index",
	Long: `Export deletes the existing CSV tables and regenerates them: one row
per document in organizations.csv, locations.csv and persons.csv, plus one
row per knowledge record in links.csv.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := connectStore(cmd.Context())
		if err != nil {
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

		return exporter.ExportLinks(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
