package evaluagent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"evaluagent-relay-go/internal/types"
)

const (
	uploadAudioPath     = "/quality/imported-contacts/upload-audio"
	importedContactPath = "/quality/imported-contacts"

	// AudioFileField is the multipart field the upload endpoint reads.
	AudioFileField = "audio_file"

	maxResponseBody = 1 << 20
)

// ErrMissingPath is returned when an upload succeeds but no storage path comes back.
var ErrMissingPath = errors.New("upload response has no path")

// APIError carries the status and body of a non-2xx Evaluagent response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("evaluagent %s failed: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

// BasicAuthorization builds the Authorization header value for an access key pair.
func BasicAuthorization(keyID, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(keyID+":"+secret))
}

type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

// Options configures a Client. Retries applies to replayable calls only; the
// audio upload streams its body and is always attempted once.
type Options struct {
	BaseURL     string
	AccessKeyID string
	SecretKey   string
	HTTPClient  *http.Client
	Retries     uint64
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	retries := opts.Retries
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		authHeader: BasicAuthorization(opts.AccessKeyID, opts.SecretKey),
		httpClient: hc,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(bo, retries)
		},
	}
}

// UploadAudio streams audio as the audio_file part of a multipart request and
// returns the storage path Evaluagent assigned to it.
func (c *Client) UploadAudio(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreateFormFile(AudioFileField, fileName)
		if err == nil {
			_, err = io.Copy(part, audio)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	// the writer must not outlive the call, audio is closed by the caller
	defer func() {
		pr.Close()
		<-done
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadAudioPath, pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", c.authHeader)

	var out types.UploadResult
	if err := c.do(req, "upload-audio", &out); err != nil {
		return "", err
	}
	if out.Path == "" {
		return "", ErrMissingPath
	}
	return out.Path, nil
}

// CreateImportedContact registers a contact and returns the raw response body.
func (c *Client) CreateImportedContact(ctx context.Context, contact types.ImportedContact) (json.RawMessage, error) {
	data, err := json.Marshal(types.ImportedContactRequest{Data: contact})
	if err != nil {
		return nil, fmt.Errorf("encode imported contact: %w", err)
	}

	var out json.RawMessage
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+importedContactPath, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build contact request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.authHeader)

		err = c.do(req, "create-imported-contact", &out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, op string, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("evaluagent %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("evaluagent %s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if raw, ok := target.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("evaluagent %s: json decode error: %v body=%s", op, err, string(body))
	}
	return nil
}
