package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/volcast/internal/corpus"
	"github.com/crimson-sun/volcast/internal/idalloc"
	"github.com/crimson-sun/volcast/internal/logging"
	"github.com/crimson-sun/volcast/internal/model"
	"github.com/crimson-sun/volcast/internal/output"
	"github.com/crimson-sun/volcast/internal/pipeline"
)

func NewPredictCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <file.json>",
		Short: "Predict volumes for events in a JSON file",
		Long: `Read one event object or an array of events and write one NDJSON
prediction per event. Events without an id get a fresh 6-digit id that does
not collide with the corpus.`,
		Args: cobra.ExactArgs(1),
		RunE: makePredictRunner(a),
	}

	cmd.Flags().Bool("full", false, "Include the feature row with each prediction")
	cmd.Flags().Int("batch-size", pipeline.DefaultBatchSize, "Events per inference call")
	return cmd
}

func makePredictRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		events, err := readEvents(args[0])
		if err != nil {
			return err
		}

		verbosity, err := output.ParseVerbosity(a.cfg.Output.Verbosity)
		if err != nil {
			return err
		}
		if full, _ := cmd.Flags().GetBool("full"); full {
			verbosity = output.Full
		}
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		reg := idalloc.NewRegistry(corpus.IDs(loadCorpusIfExists(a.cfg.Compare.CorpusPath))...)
		ids := idalloc.New(reg, idalloc.WithMaxAttempts(a.cfg.IDs.MaxAttempts))
		logging.Debug().Int("taken_ids", reg.Len()).Msg("id registry seeded from corpus")

		eng, err := a.loadEngine()
		if err != nil {
			return fmt.Errorf("load engine: %w", err)
		}
		defer eng.Close()

		out, err := a.newOutput(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		p := pipeline.New(eng, ids, out, pipeline.WithVerbosity(verbosity), pipeline.WithBatchSize(batchSize))
		defer p.Close()

		st, err := p.Predict(cmd.Context(), events)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		logging.Info().Int("events", st.Events).Int("anomalous", st.Anomalous).Msg("predictions written")
		return nil
	}
}

// readEvents parses path and drops invalid records.
func readEvents(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	events, err := corpus.ParseEvents(data)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	events, _ = corpus.Validate(events)
	if len(events) == 0 {
		return nil, errors.New("read events: no valid events")
	}
	return events, nil
}
