package capture

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/models"
)

// NetworkRecorder keeps a bounded, ordered record of the page's network
// requests and console output. When a bound is reached the oldest entry is
// discarded.
type NetworkRecorder struct {
	mu          sync.Mutex
	requests    []*models.NetworkRequest
	byID        map[network.RequestID]*models.NetworkRequest
	console     []models.ConsoleEntry
	maxRequests int
	maxConsole  int
	logger      arbor.ILogger
}

// NewNetworkRecorder creates a recorder. Non-positive limits disable the corresponding list.
func NewNetworkRecorder(maxRequests, maxConsole int, logger arbor.ILogger) *NetworkRecorder {
	return &NetworkRecorder{
		byID:        make(map[network.RequestID]*models.NetworkRequest),
		maxRequests: maxRequests,
		maxConsole:  maxConsole,
		logger:      logger,
	}
}

// Start subscribes to target events and enables the network, runtime and log domains.
// browserCtx must be a chromedp context.
func (r *NetworkRecorder) Start(browserCtx context.Context) error {
	chromedp.ListenTarget(browserCtx, r.handleEvent)

	if err := chromedp.Run(browserCtx, network.Enable(), runtime.Enable(), log.Enable()); err != nil {
		return fmt.Errorf("failed to enable capture domains: %w", err)
	}

	r.logger.Trace().
		Int("max_requests", r.maxRequests).
		Int("max_console", r.maxConsole).
		Msg("Network recorder started")
	return nil
}

func (r *NetworkRecorder) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request == nil {
			return
		}
		startedAt := time.Now()
		if e.WallTime != nil {
			startedAt = e.WallTime.Time()
		}
		r.addRequest(&models.NetworkRequest{
			RequestID:    string(e.RequestID),
			Method:       e.Request.Method,
			URL:          e.Request.URL,
			ResourceType: e.Type.String(),
			StartedAt:    startedAt,
		})

	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		r.update(e.RequestID, func(req *models.NetworkRequest) {
			req.Status = e.Response.Status
			req.StatusText = e.Response.StatusText
			req.MimeType = e.Response.MimeType
		})

	case *network.EventLoadingFinished:
		r.update(e.RequestID, func(req *models.NetworkRequest) {
			req.EncodedBytes = e.EncodedDataLength
		})

	case *network.EventLoadingFailed:
		r.update(e.RequestID, func(req *models.NetworkRequest) {
			req.Failed = true
			req.ErrorText = e.ErrorText
			if e.Canceled {
				req.ErrorText = strings.TrimSpace(req.ErrorText + " (canceled)")
			}
		})

	case *runtime.EventConsoleAPICalled:
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			parts = append(parts, remoteObjectText(arg))
		}
		r.addConsole(models.ConsoleEntry{
			Level:  e.Type.String(),
			Source: "console-api",
			Text:   strings.Join(parts, " "),
			At:     time.Now(),
		})

	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails == nil {
			return
		}
		text := e.ExceptionDetails.Text
		if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
			text = e.ExceptionDetails.Exception.Description
		}
		r.addConsole(models.ConsoleEntry{
			Level:  "exception",
			Source: "javascript",
			Text:   text,
			URL:    e.ExceptionDetails.URL,
			At:     time.Now(),
		})

	case *log.EventEntryAdded:
		if e.Entry == nil {
			return
		}
		r.addConsole(models.ConsoleEntry{
			Level:  e.Entry.Level.String(),
			Source: e.Entry.Source.String(),
			Text:   e.Entry.Text,
			URL:    e.Entry.URL,
			At:     time.Now(),
		})
	}
}

func remoteObjectText(arg *runtime.RemoteObject) string {
	if arg == nil {
		return ""
	}
	if len(arg.Value) > 0 {
		raw := string(arg.Value)
		if unquoted, err := strconv.Unquote(raw); err == nil {
			return unquoted
		}
		return raw
	}
	if arg.Description != "" {
		return arg.Description
	}
	return arg.Type.String()
}

func (r *NetworkRecorder) addRequest(req *models.NetworkRequest) {
	if r.maxRequests <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Redirects reuse the request ID; keep the latest hop only
	if existing, ok := r.byID[network.RequestID(req.RequestID)]; ok {
		existing.Method = req.Method
		existing.URL = req.URL
		return
	}

	if len(r.requests) >= r.maxRequests {
		oldest := r.requests[0]
		delete(r.byID, network.RequestID(oldest.RequestID))
		r.requests = r.requests[1:]
	}
	r.requests = append(r.requests, req)
	r.byID[network.RequestID(req.RequestID)] = req
}

func (r *NetworkRecorder) update(id network.RequestID, apply func(req *models.NetworkRequest)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req, ok := r.byID[id]; ok {
		apply(req)
	}
}

func (r *NetworkRecorder) addConsole(entry models.ConsoleEntry) {
	if r.maxConsole <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.console) >= r.maxConsole {
		r.console = r.console[1:]
	}
	r.console = append(r.console, entry)
}

// Requests returns a copy of the recorded requests in the order they started
func (r *NetworkRecorder) Requests() []models.NetworkRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.NetworkRequest, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, *req)
	}
	return out
}

// Console returns a copy of the recorded console entries
func (r *NetworkRecorder) Console() []models.ConsoleEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.ConsoleEntry(nil), r.console...)
}
