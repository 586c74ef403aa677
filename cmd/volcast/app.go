package main

import (
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/volcast/internal/config"
	"github.com/crimson-sun/volcast/internal/corpus"
	"github.com/crimson-sun/volcast/internal/engine"
	"github.com/crimson-sun/volcast/internal/model"
	"github.com/crimson-sun/volcast/internal/output"
	"github.com/crimson-sun/volcast/internal/output/file"
	"github.com/crimson-sun/volcast/internal/output/multi"
	"github.com/crimson-sun/volcast/internal/output/stdout"
)

// app carries state shared by subcommands. cfg is set in PersistentPreRunE.
type app struct {
	cfg *config.Config
}

func (a *app) loadEngine() (*engine.Engine, error) {
	return engine.Load(engine.Config{
		ModelsDir:              a.cfg.Engine.ModelsDir,
		BundleDir:              a.cfg.Engine.BundleDir,
		LibPath:                a.cfg.Engine.LibPath,
		IntraOpThreads:         a.cfg.Engine.IntraOpThreads,
		MissingCloseEarlyAsNaN: a.cfg.Engine.MissingCloseEarly == "nan",
	})
}

// newOutput builds the configured output. Stdout output goes to w.
func (a *app) newOutput(w io.Writer) (output.Output, error) {
	oc := a.cfg.Output
	switch oc.Format {
	case "file":
		f, err := file.New(oc.Path, file.WithMaxSize(oc.MaxSize))
		if err != nil {
			return nil, err
		}
		return f, nil
	case "both":
		f, err := file.New(oc.Path, file.WithMaxSize(oc.MaxSize))
		if err != nil {
			return nil, err
		}
		return multi.New(stdout.NewWriter(w, oc.Pretty), f), nil
	case "stdout", "":
		return stdout.NewWriter(w, oc.Pretty), nil
	}
	return nil, fmt.Errorf("unknown output format %q", oc.Format)
}

// loadCorpusIfExists loads path, returning nil without a warning when the
// file is absent.
func loadCorpusIfExists(path string) []model.Event {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return corpus.Load(path)
}
