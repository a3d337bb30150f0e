package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yberrad/newsgraph/internal/enrich"
	"github.com/yberrad/newsgraph/internal/models"
)

// Stage order matters: knowledge reads the organization fields the orgs
// stage writes.
var stageOrder = []string{"pos", "persons", "orgs", "locations", "knowledge"}

var enrichCmd = &cobra.Command{
	Use:   "enrich [stage]",
	Short: "Annotate documents that lack a derived field",
	Long: `Enrich runs one annotation stage (or all of them) over every document
that does not carry the stage's result yet. Stages: pos, persons, orgs,
locations, knowledge. Each stage processes the title field, then the message
field.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := "all"
		if len(args) == 1 {
			stage = args[0]
		}

		store, err := connectStore(cmd.Context())
		if err != nil {
			return err
		}

		return runEnrich(cmd, store, stage)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, store enrich.Store, stage string) error {
	stages := stageOrder
	if stage != "all" {
		stages = []string{stage}
	}

	runner := enrich.NewRunner(store, log, viper.GetInt("page-size"))

	for _, name := range stages {
		jobs, err := stageJobs(name)
		if err != nil {
			return err
		}

		for _, job := range jobs {
			log.Info("enrichment job starting", slog.String("job", job.Name))
			if _, err := runner.Run(cmd.Context(), job); err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
		}
	}

	return nil
}

func stageJobs(stage string) ([]enrich.Job, error) {
	fields := []string{models.FieldTitle, models.FieldMessage}

	var jobs []enrich.Job
	switch stage {
	case "pos":
		tagger := newTagger()
		for _, field := range fields {
			jobs = append(jobs, enrich.POSTags(field, tagger))
		}
	case "persons":
		tagger := newTagger()
		for _, field := range fields {
			jobs = append(jobs, enrich.Persons(field, tagger))
		}
	case "orgs":
		tagger := newTagger()
		for _, field := range fields {
			jobs = append(jobs, enrich.Organizations(field, tagger))
		}
	case "locations":
		tagger := newTagger()
		geocoder := newGeocoder()
		for _, field := range fields {
			jobs = append(jobs, enrich.Locations(field, tagger, geocoder))
		}
	case "knowledge":
		base := newKnowledgeBase()
		for _, field := range fields {
			jobs = append(jobs, enrich.Knowledge(field, base))
		}
	default:
		return nil, fmt.Errorf("unknown stage %q (want pos, persons, orgs, locations, knowledge or all)", stage)
	}

	return jobs, nil
}
