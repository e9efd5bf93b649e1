package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"evaluagent-relay-go/internal/dataset"
	"evaluagent-relay-go/internal/evaluagent"
	"evaluagent-relay-go/internal/logger"
	"evaluagent-relay-go/internal/recording"
	"evaluagent-relay-go/internal/relay"
	"evaluagent-relay-go/internal/types"
)

func testRows(base string) []dataset.Row {
	return []dataset.Row{
		{Line: 2, Record: types.CallRecord{Reference: "ok", AgentEmail: "a@b.c", ContactDate: "2024-03-01T09:30:00.000Z", RecordingURL: base + "/rec/ok.wav"}},
		{Line: 3, Record: types.CallRecord{Reference: "no-email", ContactDate: "2024-03-01T09:30:00.000Z", RecordingURL: base + "/rec/x.wav"}},
		{Line: 4, Record: types.CallRecord{Reference: "missing", AgentEmail: "a@b.c", ContactDate: "2024-03-01T09:30:00.000Z", RecordingURL: base + "/rec/missing.wav"}},
	}
}

func TestRun_TalliesOutcomes(t *testing.T) {
	var uploads atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		switch r.URL.Path {
		case "/rec/ok.wav":
			_, _ = w.Write([]byte("wav"))
		case "/quality/imported-contacts/upload-audio":
			uploads.Add(1)
			_, _ = w.Write([]byte(`{"path":"p/ok.wav"}`))
		case "/quality/imported-contacts":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	rl := relay.New(
		recording.NewFetcher(upstream.Client(), 0),
		evaluagent.NewClient(evaluagent.Options{BaseURL: upstream.URL, HTTPClient: upstream.Client()}),
	)

	counts := run(context.Background(), logger.Discard().Entry, rl, testRows(upstream.URL), false, time.Minute)
	if counts[relay.Processed] != 1 || counts[relay.Rejected] != 1 || counts[relay.Failed] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	if uploads.Load() != 1 {
		t.Fatalf("uploads = %d", uploads.Load())
	}
}

func TestRun_DryRunMakesNoCalls(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	rl := relay.New(
		recording.NewFetcher(upstream.Client(), 0),
		evaluagent.NewClient(evaluagent.Options{BaseURL: upstream.URL, HTTPClient: upstream.Client()}),
	)

	counts := run(context.Background(), logger.Discard().Entry, rl, testRows(upstream.URL), true, time.Minute)
	if counts[relay.Processed] != 2 || counts[relay.Rejected] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	if calls.Load() != 0 {
		t.Fatalf("dry run made %d calls", calls.Load())
	}
}
