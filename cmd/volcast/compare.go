package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/volcast/internal/corpus"
	"github.com/crimson-sun/volcast/internal/engine"
	"github.com/crimson-sun/volcast/internal/engine/similarity"
	"github.com/crimson-sun/volcast/internal/model"
	"github.com/crimson-sun/volcast/internal/pipeline"
)

func NewCompareCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Pick comparable settled events for an anchor",
		Long: `Select comparable events from the corpus, either for a corpus event
(--id) or for a new event described by flags (--title, --duration, ...).
A new event is predicted first and compared on its estimate.`,
		Args: cobra.NoArgs,
		RunE: makeCompareRunner(a),
	}

	cmd.Flags().String("corpus", "", "Corpus JSON file (default compare.corpus_path)")
	cmd.Flags().String("id", "", "Anchor event id from the corpus")
	cmd.Flags().String("title", "", "Anchor event title")
	cmd.Flags().String("category", "", "Anchor event category")
	cmd.Flags().String("series", "", "Anchor event series")
	cmd.Flags().Float64("duration", 0, "Anchor event duration in seconds")
	cmd.Flags().Float64("volume", 0, "Anchor volume, skips prediction")
	cmd.Flags().Int("cap", 0, "Maximum comparable events (default compare.cap)")
	cmd.Flags().String("diversity", "", "Diversity key: series|category|both (default compare.diversity_key)")
	cmd.MarkFlagsMutuallyExclusive("id", "title")
	return cmd
}

func makeCompareRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()

		path, _ := flags.GetString("corpus")
		if path == "" {
			path = a.cfg.Compare.CorpusPath
		}
		limit, _ := flags.GetInt("cap")
		if limit <= 0 {
			limit = a.cfg.Compare.Cap
		}
		keyName, _ := flags.GetString("diversity")
		if keyName == "" {
			keyName = a.cfg.Compare.DiversityKey
		}
		key, err := similarity.ParseDiversityKey(keyName)
		if err != nil {
			return err
		}

		events := corpus.Load(path)
		anchor, err := anchorFromFlags(cmd, events)
		if err != nil {
			return err
		}

		var eng pipeline.Engine = settledEngine{}
		if !anchor.HasVolume() {
			e, err := a.loadEngine()
			if err != nil {
				return fmt.Errorf("load engine: %w", err)
			}
			defer e.Close()
			eng = e
		}

		out, err := a.newOutput(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		p := pipeline.New(eng, nil, out)
		defer p.Close()

		if _, err := p.Compare(cmd.Context(), anchor, events, limit, similarity.WithDiversity(key)); err != nil {
			return fmt.Errorf("compare: %w", err)
		}
		return nil
	}
}

func anchorFromFlags(cmd *cobra.Command, events []model.Event) (model.Event, error) {
	flags := cmd.Flags()

	var anchor model.Event
	if id, _ := flags.GetString("id"); id != "" {
		ev, ok := corpus.Find(events, id)
		if !ok {
			return model.Event{}, fmt.Errorf("event %q not in corpus", id)
		}
		anchor = ev
	} else {
		title, _ := flags.GetString("title")
		if title == "" {
			return model.Event{}, errors.New("one of --id or --title is required")
		}
		anchor.Title = title
		anchor.Category, _ = flags.GetString("category")
		anchor.Series, _ = flags.GetString("series")
		if flags.Changed("duration") {
			d, _ := flags.GetFloat64("duration")
			anchor.Duration = model.Float(d)
		}
	}

	if flags.Changed("volume") {
		v, _ := flags.GetFloat64("volume")
		anchor.Volume = model.Float(v)
	}
	return anchor, nil
}

// settledEngine compares anchors that already carry a volume. It loads no
// models, so it cannot predict.
type settledEngine struct{}

func (settledEngine) Predict([]model.Event) ([]model.PredictionResult, []model.Enriched, error) {
	return nil, nil, errors.New("no models loaded")
}

func (settledEngine) Compare(anchor model.Event, events []model.Event, limit int, opts ...similarity.Option) (model.ComparisonSet, error) {
	return engine.CompareSettled(anchor, events, limit, opts...)
}
