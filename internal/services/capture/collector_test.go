package capture

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/models"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Checkout</title></head>
<body>
<h1>Basket</h1>
<div id="status">loading</div>
<script>
console.error("price service unavailable");
fetch("/api/price").then(function (r) {
	document.getElementById("status").id = "done";
});
</script>
</body></html>`

func newBrowser(t *testing.T) context.Context {
	t.Helper()

	found := false
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no Chrome or Chromium binary on PATH")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.WindowSize(1280, 720),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	t.Cleanup(allocCancel)

	ctx, cancel := chromedp.NewContext(allocCtx)
	t.Cleanup(cancel)
	return ctx
}

func TestCollector_CapturesLivePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/price" {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, testPage)
	}))
	defer server.Close()

	browserCtx := newBrowser(t)
	logger := arbor.NewLogger()

	recorder := NewNetworkRecorder(100, 100, logger)
	require.NoError(t, recorder.Start(browserCtx))

	ctx, cancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancel()
	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(server.URL), chromedp.WaitReady("#done", chromedp.ByQuery)))

	assert.Eventually(t, func() bool {
		for _, req := range recorder.Requests() {
			if strings.HasSuffix(req.URL, "/api/price") && req.Status == http.StatusServiceUnavailable {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	config := common.NewDefaultConfig().Capture
	artifacts := NewCollector(browserCtx, recorder, config, logger).Capture(context.Background())

	assert.Empty(t, artifacts.Errors)
	assert.Equal(t, "Checkout", artifacts.Title)
	assert.Equal(t, server.URL+"/", artifacts.URL)
	assert.Contains(t, artifacts.DOM, "<h1>Basket</h1>")
	assert.NotEmpty(t, artifacts.Screenshot)
	assert.True(t, containsConsole(artifacts.Console, "price service unavailable"))
}

func TestCollector_DeadBrowserIsBestEffort(t *testing.T) {
	browserCtx := newBrowser(t)
	require.NoError(t, chromedp.Run(browserCtx))

	dead, cancel := context.WithCancel(browserCtx)
	cancel()

	config := common.NewDefaultConfig().Capture
	config.Timeout = "1s"
	artifacts := NewCollector(dead, nil, config, arbor.NewLogger()).Capture(context.Background())

	require.NotNil(t, artifacts)
	assert.Len(t, artifacts.Errors, 3)
	assert.Empty(t, artifacts.Screenshot)
}

func containsConsole(entries []models.ConsoleEntry, text string) bool {
	for _, entry := range entries {
		if strings.Contains(entry.Text, text) {
			return true
		}
	}
	return false
}
