package main

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/spf13/cobra"
)

func newRenderCommand(a *app) *cobra.Command {
	var profile bool
	cmd := &cobra.Command{
		Use:   "render <in> <out>",
		Short: "Render an image file through the configured effect",
		Example: `  oxyfx render photo.png out.png --set effect=Blur --set blur_type=Gaussian --set gaussian_radius=12
  oxyfx render --backend software scan.tiff out.jpg -s effect=Negative -s negative=true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := common.LoadImage(args[0])
			if err != nil {
				return err
			}

			prof := profiler.NewProfiler()
			plugin, err := a.newPlugin(renderer.WithProfiler(prof))
			if err != nil {
				return err
			}
			defer plugin.Release()

			start := time.Now()
			out, err := plugin.RenderImage(cmd.Context(), img)
			if err != nil {
				return fmt.Errorf("render failed (%s): %w", engine.Classify(err), err)
			}
			common.Logger().Info("image rendered", "in", args[0], "size", img.Bounds().Size(), "elapsed", time.Since(start))

			if err := common.SaveImage(args[1], out); err != nil {
				return err
			}
			if profile {
				printProfile(cmd, prof)
			}
			return nil
		},
	}
	a.addSetFlag(cmd)
	cmd.Flags().BoolVar(&profile, "profile", false, "print per-pipeline tile statistics")
	return cmd
}
