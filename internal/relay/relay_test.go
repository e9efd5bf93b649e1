package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"evaluagent-relay-go/internal/evaluagent"
	"evaluagent-relay-go/internal/logger"
	"evaluagent-relay-go/internal/recording"
	"evaluagent-relay-go/internal/types"
)

// downstream fakes both the recording host and the Evaluagent API and keeps
// the order of the calls it saw.
type downstream struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	calls    []string
	contacts []types.ImportedContactRequest

	recordingStatus int
	uploadStatus    int
	contactStatus   int
}

func newDownstream(t *testing.T) *downstream {
	d := &downstream{
		t:               t,
		recordingStatus: http.StatusOK,
		uploadStatus:    http.StatusOK,
		contactStatus:   http.StatusCreated,
	}
	d.server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.server.Close)
	return d
}

func (d *downstream) serve(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.calls = append(d.calls, r.Method+" "+r.URL.Path)
	d.mu.Unlock()

	switch r.URL.Path {
	case "/recordings/call.mp3":
		w.WriteHeader(d.recordingStatus)
		_, _ = w.Write([]byte("audio-bytes"))
	case "/v1/quality/imported-contacts/upload-audio":
		file, _, err := r.FormFile(evaluagent.AudioFileField)
		if err != nil {
			d.t.Errorf("upload without audio_file: %v", err)
		} else {
			b, _ := io.ReadAll(file)
			if string(b) != "audio-bytes" {
				d.t.Errorf("uploaded %q", b)
			}
		}
		w.WriteHeader(d.uploadStatus)
		if d.uploadStatus == http.StatusOK {
			_, _ = w.Write([]byte(`{"path":"imported/call.mp3"}`))
		} else {
			_, _ = w.Write([]byte(`{"message":"storage unavailable"}`))
		}
	case "/v1/quality/imported-contacts":
		var body types.ImportedContactRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		d.mu.Lock()
		d.contacts = append(d.contacts, body)
		d.mu.Unlock()
		w.WriteHeader(d.contactStatus)
		if d.contactStatus == http.StatusCreated {
			_, _ = w.Write([]byte(`{"data":{"id":"contact-1"}}`))
		} else {
			_, _ = w.Write([]byte(`{"message":"channel Telephony not found"}`))
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (d *downstream) relay() *Relay {
	hc := d.server.Client()
	return New(
		recording.NewFetcher(hc, 0),
		evaluagent.NewClient(evaluagent.Options{
			BaseURL:     d.server.URL + "/v1",
			AccessKeyID: "id",
			SecretKey:   "secret",
			HTTPClient:  hc,
		}),
	)
}

func (d *downstream) event(startMillis int64) types.Event {
	return d.decode(fmt.Sprintf(`{"id":"call-123","type":"call:completed","data":{"flows":[{
		"caller":{"email":"agent@example.com","phone":"1001"},
		"startTime":%d,
		"recordingsData":[{"url":%q,"fileName":"call.mp3"}]
	}]}}`, startMillis, d.server.URL+"/recordings/call.mp3"))
}

func (d *downstream) decode(raw string) types.Event {
	d.t.Helper()
	ev, err := types.DecodeEvent([]byte(raw))
	if err != nil {
		d.t.Fatalf("decode event: %v", err)
	}
	return ev
}

func (d *downstream) sent() []types.ImportedContactRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]types.ImportedContactRequest(nil), d.contacts...)
}

func (d *downstream) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func TestHandle_Success(t *testing.T) {
	d := newDownstream(t)
	out := d.relay().Handle(context.Background(), logger.Discard().Entry, d.event(1709285400123))

	if out.Kind != Processed || out.Status() != http.StatusOK || out.Message != MsgProcessed {
		t.Fatalf("unexpected outcome %+v", out)
	}

	want := []string{
		"GET /recordings/call.mp3",
		"POST /v1/quality/imported-contacts/upload-audio",
		"POST /v1/quality/imported-contacts",
	}
	if got := d.seen(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %v, want %v", got, want)
	}

	contacts := d.sent()
	if len(contacts) != 1 {
		t.Fatalf("contacts = %d", len(contacts))
	}
	c := contacts[0].Data
	if c.Reference != "call-123" || c.AgentEmail != "agent@example.com" ||
		c.Channel != "Telephony" || c.AudioFilePath != "imported/call.mp3" ||
		c.ContactDate != "2024-03-01T09:30:00.123Z" {
		t.Fatalf("unexpected contact %+v", c)
	}
}

func TestHandle_ContactDateRoundTrips(t *testing.T) {
	for _, ms := range []int64{1, 1709285400001, 1709285400999, 1893456000000} {
		t.Run(fmt.Sprint(ms), func(t *testing.T) {
			d := newDownstream(t)
			if out := d.relay().Handle(context.Background(), logger.Discard().Entry, d.event(ms)); out.Kind != Processed {
				t.Fatalf("outcome %+v", out)
			}
			date := d.sent()[0].Data.ContactDate
			parsed, err := time.Parse(time.RFC3339Nano, date)
			if err != nil {
				t.Fatalf("contact_date not ISO-8601: %v", err)
			}
			if parsed.UnixMilli() != ms {
				t.Fatalf("round trip %d -> %s -> %d", ms, date, parsed.UnixMilli())
			}
		})
	}
}

func TestHandle_UploadFailureStopsPipeline(t *testing.T) {
	d := newDownstream(t)
	d.uploadStatus = http.StatusServiceUnavailable

	out := d.relay().Handle(context.Background(), logger.Discard().Entry, d.event(1))
	if out.Kind != Failed || out.Status() != http.StatusInternalServerError || out.Message != MsgFailed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !strings.Contains(out.Reason, "storage unavailable") {
		t.Fatalf("reason should carry downstream body, got %q", out.Reason)
	}
	for _, c := range d.seen() {
		if c == "POST /v1/quality/imported-contacts" {
			t.Fatal("contact creation must not run after a failed upload")
		}
	}
}

func TestHandle_DownloadFailure(t *testing.T) {
	d := newDownstream(t)
	d.recordingStatus = http.StatusForbidden

	out := d.relay().Handle(context.Background(), logger.Discard().Entry, d.event(1))
	if out.Kind != Failed || out.Status() != http.StatusInternalServerError {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := d.seen(); len(got) != 1 || got[0] != "GET /recordings/call.mp3" {
		t.Fatalf("calls = %v", got)
	}
}

func TestHandle_ContactFailure(t *testing.T) {
	d := newDownstream(t)
	d.contactStatus = http.StatusUnprocessableEntity

	out := d.relay().Handle(context.Background(), logger.Discard().Entry, d.event(1))
	if out.Kind != Failed || out.Status() != http.StatusInternalServerError {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !strings.Contains(out.Reason, "channel Telephony not found") {
		t.Fatalf("reason = %q", out.Reason)
	}
	if len(d.seen()) != 3 {
		t.Fatalf("calls = %v", d.seen())
	}
}

func TestHandle_RefusedEventsMakeNoCalls(t *testing.T) {
	d := newDownstream(t)
	r := d.relay()

	url := d.server.URL + "/recordings/call.mp3"
	events := []string{
		`{"id":"empty"}`,
		`{"id":"c","data":[]}`,
		`{"id":"c","data":{"flows":[{"caller":{},"startTime":1,"recordingsData":[{"url":"` + url + `"}]}]}}`,
		`{"id":"c","data":{"flows":[{"caller":{"email":"a@b.c"},"startTime":1}]}}`,
		`{"id":"c","data":{"flows":[{"caller":{"email":"a@b.c"},"startTime":"n/a","recordingsData":[{"url":"` + url + `"}]}]}}`,
	}
	for _, raw := range events {
		if out := r.Handle(context.Background(), logger.Discard().Entry, d.decode(raw)); out.Kind == Processed || out.Kind == Failed {
			t.Fatalf("%s: unexpected outcome %+v", raw, out)
		}
	}
	if got := d.seen(); len(got) != 0 {
		t.Fatalf("expected no outbound calls, got %v", got)
	}
}
