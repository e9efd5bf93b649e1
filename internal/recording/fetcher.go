package recording

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxErrorBody bounds how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// StatusError is returned when the recording host answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recording download failed: status=%d body=%s", e.StatusCode, e.Body)
}

// Fetcher downloads recording audio. The recording URL is used as is; the
// telephony platform signs it, so no auth is added.
type Fetcher struct {
	client     *http.Client
	newBackOff func() backoff.BackOff
}

// NewFetcher returns a Fetcher that makes one attempt plus up to retries more.
func NewFetcher(client *http.Client, retries uint64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Fetcher{
		client: client,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(bo, retries)
		},
	}
}

// Fetch issues the GET and returns the response body unread. The caller must
// close it. Only the status line and headers are awaited here, the audio is
// streamed by whoever reads the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	var body io.ReadCloser
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build recording request: %w", err))
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("download recording: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			serr := &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(serr)
			}
			return serr
		}
		body = resp.Body
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(f.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
