package capture

import (
	"fmt"
	"testing"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func requestEvent(id, url string) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		Request:   &network.Request{Method: "GET", URL: url},
		Type:      network.ResourceTypeXHR,
	}
}

func TestNetworkRecorder_RequestLifecycle(t *testing.T) {
	recorder := NewNetworkRecorder(10, 10, arbor.NewLogger())

	recorder.handleEvent(requestEvent("1", "https://app.test/api/orders"))
	recorder.handleEvent(&network.EventResponseReceived{
		RequestID: "1",
		Response:  &network.Response{Status: 500, StatusText: "Internal Server Error", MimeType: "application/json"},
	})
	recorder.handleEvent(&network.EventLoadingFinished{RequestID: "1", EncodedDataLength: 128})

	recorder.handleEvent(requestEvent("2", "https://cdn.test/app.js"))
	recorder.handleEvent(&network.EventLoadingFailed{RequestID: "2", ErrorText: "net::ERR_CONNECTION_REFUSED"})

	// Events for unknown requests are ignored
	recorder.handleEvent(&network.EventLoadingFinished{RequestID: "missing", EncodedDataLength: 1})

	requests := recorder.Requests()
	require.Len(t, requests, 2)

	assert.Equal(t, "https://app.test/api/orders", requests[0].URL)
	assert.Equal(t, int64(500), requests[0].Status)
	assert.Equal(t, "application/json", requests[0].MimeType)
	assert.InDelta(t, 128, requests[0].EncodedBytes, 0.001)
	assert.Equal(t, "XHR", requests[0].ResourceType)

	assert.True(t, requests[1].Failed)
	assert.Equal(t, "net::ERR_CONNECTION_REFUSED", requests[1].ErrorText)
}

func TestNetworkRecorder_Bounded(t *testing.T) {
	recorder := NewNetworkRecorder(3, 2, arbor.NewLogger())

	for i := 0; i < 5; i++ {
		recorder.handleEvent(requestEvent(fmt.Sprint(i), fmt.Sprintf("https://app.test/%d", i)))
	}
	requests := recorder.Requests()
	require.Len(t, requests, 3)
	assert.Equal(t, "https://app.test/2", requests[0].URL)
	assert.Equal(t, "https://app.test/4", requests[2].URL)

	// Evicted requests no longer receive updates
	recorder.handleEvent(&network.EventLoadingFailed{RequestID: "0", ErrorText: "late"})
	for _, req := range recorder.Requests() {
		assert.False(t, req.Failed)
	}
}

func TestNetworkRecorder_RedirectKeepsOneEntry(t *testing.T) {
	recorder := NewNetworkRecorder(10, 10, arbor.NewLogger())

	recorder.handleEvent(requestEvent("1", "http://app.test/login"))
	recorder.handleEvent(requestEvent("1", "https://app.test/login"))

	requests := recorder.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "https://app.test/login", requests[0].URL)
}

func TestNetworkRecorder_Console(t *testing.T) {
	recorder := NewNetworkRecorder(0, 10, arbor.NewLogger())

	recorder.handleEvent(&runtime.EventConsoleAPICalled{
		Type: runtime.APITypeError,
		Args: []*runtime.RemoteObject{
			{Type: runtime.TypeObject, Description: "TypeError: cannot read properties of undefined"},
		},
	})
	recorder.handleEvent(&log.EventEntryAdded{
		Entry: &log.Entry{
			Source: log.SourceNetwork,
			Level:  log.LevelError,
			Text:   "Failed to load resource: the server responded with a status of 500",
			URL:    "https://app.test/api/orders",
		},
	})
	recorder.handleEvent(&runtime.EventExceptionThrown{
		ExceptionDetails: &runtime.ExceptionDetails{Text: "Uncaught", URL: "https://app.test/app.js"},
	})
	recorder.handleEvent(requestEvent("1", "https://app.test/"))

	console := recorder.Console()
	require.Len(t, console, 3)
	assert.Equal(t, "error", console[0].Level)
	assert.Equal(t, "TypeError: cannot read properties of undefined", console[0].Text)
	assert.Equal(t, "network", console[1].Source)
	assert.Equal(t, "exception", console[2].Level)
	assert.Equal(t, "Uncaught", console[2].Text)

	assert.Empty(t, recorder.Requests(), "request recording disabled with a zero limit")
}
