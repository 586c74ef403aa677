package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/volcast/internal/engine/artifact"
	"github.com/crimson-sun/volcast/internal/engine/features"
	"github.com/crimson-sun/volcast/internal/engine/ortenv"
)

type inspectOutput struct {
	artifact.Manifest
	Dir           string `json:"dir"`
	BuilderSchema int    `json:"builder_schema_version"`
	ReducerIn     int    `json:"reducer_in_dim"`
	ReducerOut    int    `json:"reducer_out_dim"`
	Whiten        bool   `json:"reducer_whiten"`
	Library       string `json:"onnxruntime_library,omitempty"`
}

func NewInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the artifact bundle",
		Long:  `Load and validate the artifact bundle without opening any model, and print its manifest.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := artifact.Load(a.cfg.Engine.BundleDir, features.SchemaVersion)
			if err != nil {
				return err
			}

			out := inspectOutput{
				Manifest:      b.Manifest,
				Dir:           b.Dir,
				BuilderSchema: features.SchemaVersion,
				ReducerIn:     b.Reducer.InDim,
				ReducerOut:    b.Reducer.OutDim,
				Whiten:        b.Reducer.Whiten,
				Library:       a.cfg.Engine.LibPath,
			}
			if out.Library == "" {
				out.Library, _ = ortenv.FindLibrary(a.cfg.Engine.ModelsDir)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
