package frames

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/faultlens/internal/interfaces"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 480
)

// Placeholder strategy names
const (
	ToolMagickPlaceholder = "imagemagick-placeholder"
	ToolNativePlaceholder = "native-placeholder"
	ToolTextPlaceholder   = "text-placeholder"
)

// PlaceholderRenderer writes a synthetic stand-in when no real frame could be grabbed
type PlaceholderRenderer interface {
	Name() string
	Render(ctx context.Context, outputPath string, position float64) error
}

func placeholderLines(position float64) []string {
	return []string{
		fmt.Sprintf("Frame at %.2fs", position),
		"Video frame extraction tools unavailable",
	}
}

// MagickPlaceholder draws a black 640x480 canvas with centred white text
type MagickPlaceholder struct {
	binary  string
	runner  interfaces.ToolRunner
	timeout time.Duration
}

func NewMagickPlaceholder(binary string, runner interfaces.ToolRunner, timeout time.Duration) *MagickPlaceholder {
	return &MagickPlaceholder{binary: binary, runner: runner, timeout: timeout}
}

func (m *MagickPlaceholder) Name() string { return ToolMagickPlaceholder }

func (m *MagickPlaceholder) Args(outputPath string, position float64) []string {
	return []string{
		"-size", fmt.Sprintf("%dx%d", placeholderWidth, placeholderHeight),
		"canvas:black",
		"-fill", "white",
		"-pointsize", "24",
		"-gravity", "center",
		"-annotate", "+0+0", strings.Join(placeholderLines(position), "\n"),
		outputPath,
	}
}

func (m *MagickPlaceholder) Render(ctx context.Context, outputPath string, position float64) error {
	if _, err := m.runner.Run(ctx, m.binary, m.Args(outputPath, position), m.timeout); err != nil {
		return fmt.Errorf("imagemagick placeholder: %w", err)
	}
	return nil
}

// NativePlaceholder renders the same image in-process for jpg, png and bmp outputs
type NativePlaceholder struct{}

func (NativePlaceholder) Name() string { return ToolNativePlaceholder }

func (NativePlaceholder) Render(ctx context.Context, outputPath string, position float64) error {
	encode, err := encoderFor(outputPath)
	if err != nil {
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	lines := placeholderLines(position)
	lineHeight := face.Metrics().Height.Ceil() + 6
	top := (placeholderHeight - lineHeight*len(lines)) / 2
	for i, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.White),
			Face: face,
			Dot:  fixed.P((placeholderWidth-width)/2, top+lineHeight*(i+1)),
		}
		drawer.DrawString(line)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create placeholder: %w", err)
	}
	if err := encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return file.Close()
}

type imageEncoder func(f *os.File, img image.Image) error

func encoderFor(outputPath string) (imageEncoder, error) {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".jpg", ".jpeg":
		return func(f *os.File, img image.Image) error {
			return jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
		}, nil
	case ".png":
		return func(f *os.File, img image.Image) error { return png.Encode(f, img) }, nil
	case ".bmp":
		return func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }, nil
	default:
		return nil, fmt.Errorf("no native encoder for %s", filepath.Ext(outputPath))
	}
}

// TextPlaceholder is the last resort: the "image" is a single line of text.
// Consumers must check VideoFrame.IsPlaceholder before decoding.
type TextPlaceholder struct{}

func (TextPlaceholder) Name() string { return ToolTextPlaceholder }

func (TextPlaceholder) Render(ctx context.Context, outputPath string, position float64) error {
	content := fmt.Sprintf("Placeholder for frame at %.2fs\n", position)
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write text placeholder: %w", err)
	}
	return nil
}
