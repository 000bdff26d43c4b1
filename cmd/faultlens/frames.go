package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ternarybob/faultlens/internal/app"
	"github.com/ternarybob/faultlens/internal/models"
	"github.com/ternarybob/faultlens/internal/services/frames"
)

var framesCmd = &cobra.Command{
	Use:   "frames <video>",
	Short: "Extract key frames from a test video",
	Long: `Extracts still frames from a recorded test video. By default frames are taken at key
moments (start, end, middle, quarters); --interval samples at a fixed spacing and --at
extracts a single frame. Missing tools fall back to placeholder images.`,
	Args: cobra.ExactArgs(1),
	RunE: runFrames,
}

var (
	framesMax      int
	framesInterval float64
	framesFormat   string
	framesOut      string
	framesAt       float64
	framesJSON     bool
)

func init() {
	framesCmd.Flags().IntVar(&framesMax, "max", 0, "Maximum frames (default from config)")
	framesCmd.Flags().Float64Var(&framesInterval, "interval", 0, "Seconds between frames; 0 uses key moments")
	framesCmd.Flags().StringVar(&framesFormat, "format", "", "Image format: jpg, png, bmp, webp (default from config)")
	framesCmd.Flags().StringVar(&framesOut, "out", "", "Frame output directory (default from config)")
	framesCmd.Flags().Float64Var(&framesAt, "at", 0, "Extract a single frame at this position in seconds")
	framesCmd.Flags().BoolVar(&framesJSON, "json", false, "Print the result as JSON")
}

func runFrames(cmd *cobra.Command, args []string) error {
	video := args[0]

	return withApp(func(ctx context.Context, application *app.App) error {
		if cmd.Flags().Changed("at") {
			result := application.Extractor.ExtractFrameAtPosition(ctx, video, framesAt, framesOut, framesFormat)
			if result.Frame != nil {
				result.Frame.EncodedImage = ""
			}
			if framesJSON {
				return printJSON(result)
			}
			if result.Frame == nil {
				return fmt.Errorf("no frame extracted: %s %s", result.Reason, result.Detail)
			}
			printFrame(0, *result.Frame)
			return nil
		}

		interval := application.Config.Frames.Interval
		if cmd.Flags().Changed("interval") {
			interval = framesInterval
		}

		result := application.Extractor.ExtractKeyFrames(ctx, models.ExtractionRequest{
			VideoPath:       video,
			MaxFrames:       framesMax,
			Interval:        interval,
			OutputDirectory: framesOut,
			Format:          framesFormat,
		})
		for i := range result.Frames {
			result.Frames[i].EncodedImage = ""
		}

		if framesJSON {
			return printJSON(result)
		}

		estimated := ""
		if result.Estimated {
			estimated = " (estimated)"
		}
		fmt.Printf("%s: %.2fs%s, %d of %d frames\n", filepath.Base(video), result.Duration, estimated, len(result.Frames), len(result.Planned))
		for i, frame := range result.Frames {
			printFrame(i, frame)
		}
		if !result.OK() {
			fmt.Printf("incomplete: %s %s\n", result.Reason, result.Detail)
		}
		return nil
	})
}

func printFrame(index int, frame models.VideoFrame) {
	kind := frame.Tool
	if frame.IsPlaceholder {
		kind += " [placeholder]"
	}
	fmt.Printf("  %2d  %s  %-28s %s\n", index, frames.FormatTimestamp(frame.Position), kind, frame.SourcePath)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
