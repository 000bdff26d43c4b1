package frames

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/faultlens/internal/interfaces"
)

type toolHandler func(args []string) (*interfaces.ToolOutput, error)

type fakeCall struct {
	name string
	args []string
}

// fakeRunner answers tool invocations from per-binary handlers; unknown
// binaries behave as if they were not installed.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []fakeCall
	handlers map[string]toolHandler
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{handlers: make(map[string]toolHandler)}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (*interfaces.ToolOutput, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{name: name, args: append([]string(nil), args...)})
	handler, ok := f.handlers[name]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", name, interfaces.ErrToolNotFound)
	}
	return handler(args)
}

func (f *fakeRunner) Available(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[name]
	return ok
}

func (f *fakeRunner) callsTo(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call.name == name {
			count++
		}
	}
	return count
}

func (f *fakeRunner) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func stdout(s string) toolHandler {
	return func(args []string) (*interfaces.ToolOutput, error) {
		return &interfaces.ToolOutput{Stdout: []byte(s)}, nil
	}
}

// writesJPEG simulates a grabber that writes a real image to its output argument
func writesJPEG(outputDir string) toolHandler {
	return func(args []string) (*interfaces.ToolOutput, error) {
		out := outputArg(args, outputDir)
		if out == "" {
			return &interfaces.ToolOutput{ExitCode: 1}, fmt.Errorf("no output argument")
		}
		if err := writeJPEG(out); err != nil {
			return nil, err
		}
		return &interfaces.ToolOutput{}, nil
	}
}

func outputArg(args []string, outputDir string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, outputDir) {
			return arg
		}
	}
	return ""
}

func indexOf(args []string, flag string) int {
	for i, arg := range args {
		if arg == flag {
			return i
		}
	}
	return -1
}

// argAfter returns the value following flag, or "" when flag is absent or last
func argAfter(args []string, flag string) string {
	i := indexOf(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func writeJPEG(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

func writeVideo(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// drawsCanvasOnly simulates ImageMagick that cannot read video but can draw a
// placeholder canvas to the last argument
func drawsCanvasOnly() toolHandler {
	return func(args []string) (*interfaces.ToolOutput, error) {
		if indexOf(args, "canvas:black") < 0 {
			return &interfaces.ToolOutput{ExitCode: 1}, fmt.Errorf("no video delegate")
		}
		if err := writeJPEG(args[len(args)-1]); err != nil {
			return nil, err
		}
		return &interfaces.ToolOutput{}, nil
	}
}
