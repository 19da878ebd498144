package main

import (
	"context"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-fx/engine"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/video"
	"github.com/spf13/cobra"
)

func newVideoCommand(a *app) *cobra.Command {
	var (
		ffmpegPath string
		codec      string
		pixFmt     string
		ffmpegLog  bool
		profile    bool
	)
	cmd := &cobra.Command{
		Use:     "video <in> <out>",
		Short:   "Render every frame of a clip through the configured effect with ffmpeg",
		Example: `  oxyfx video clip.mp4 out.mp4 --set 'effect=Special Effect' --set oil_painting_radius=3`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prof := profiler.NewProfiler()
			plugin, err := a.newPlugin(renderer.WithProfiler(prof))
			if err != nil {
				return err
			}
			defer plugin.Release()

			options := []video.ProcessorBuilderOption{video.WithFFmpegLog(ffmpegLog)}
			if ffmpegPath != "" {
				options = append(options, video.WithFFmpegPath(ffmpegPath))
			}
			if codec != "" {
				options = append(options, video.WithCodec(codec))
			}
			if pixFmt != "" {
				options = append(options, video.WithPixelFormat(pixFmt))
			}

			frames, err := video.NewProcessor(options...).Process(cmd.Context(), args[0], args[1],
				func(ctx context.Context, _ int, frame *image.RGBA) (*image.RGBA, error) {
					return plugin.RenderImage(ctx, frame)
				})
			if err != nil {
				return fmt.Errorf("video failed after %d frames (%s): %w", frames, engine.Classify(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d frames written to %s\n", frames, args[1])
			if profile {
				printProfile(cmd, prof)
			}
			return nil
		},
	}
	a.addSetFlag(cmd)
	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "", "ffmpeg binary (default: ffmpeg on PATH)")
	cmd.Flags().StringVar(&codec, "codec", "", "output video codec (default libx264)")
	cmd.Flags().StringVar(&pixFmt, "pix-fmt", "", "output pixel format (default yuv420p)")
	cmd.Flags().BoolVar(&ffmpegLog, "ffmpeg-log", false, "show ffmpeg's own log output")
	cmd.Flags().BoolVar(&profile, "profile", false, "print per-pipeline tile statistics")
	return cmd
}
