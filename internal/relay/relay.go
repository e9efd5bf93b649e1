package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"evaluagent-relay-go/internal/evaluagent"
	"evaluagent-relay-go/internal/recording"
	"evaluagent-relay-go/internal/types"
)

// Downloader opens a recording for streaming.
type Downloader interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// QualityAPI is the part of the Evaluagent API the relay calls.
type QualityAPI interface {
	UploadAudio(ctx context.Context, fileName string, audio io.Reader) (string, error)
	CreateImportedContact(ctx context.Context, contact types.ImportedContact) (json.RawMessage, error)
}

// Relay turns call-completed events into Evaluagent imported contacts.
// It holds no per-delivery state and is safe for concurrent use.
type Relay struct {
	recordings Downloader
	api        QualityAPI
}

func New(recordings Downloader, api QualityAPI) *Relay {
	return &Relay{recordings: recordings, api: api}
}

// Handle validates ev and, when it is importable, imports the primary recording.
func (r *Relay) Handle(ctx context.Context, log *logrus.Entry, ev types.Event) Outcome {
	rec, out, ok := Extract(ev)
	if !ok {
		log.WithFields(logrus.Fields{
			"outcome": out.Kind.String(),
			"reason":  out.Reason,
		}).Info("webhook not imported")
		return out
	}
	return r.Run(ctx, log, rec)
}

// Run imports a record that already passed Check and reports the outcome.
func (r *Relay) Run(ctx context.Context, log *logrus.Entry, rec types.CallRecord) Outcome {
	log = log.WithFields(logrus.Fields{
		"reference":   rec.Reference,
		"agent_email": rec.AgentEmail,
	})
	if err := r.Import(ctx, log, rec); err != nil {
		out := failed(err)
		log.WithFields(logrus.Fields{
			"error": out.Reason,
			"cause": err.Error(),
		}).Error("error processing webhook")
		return out
	}
	return processed()
}

// Import downloads the recording, uploads it and creates the imported
// contact. The first failing step aborts the rest; an upload that succeeded
// before a contact creation failure is left in place.
func (r *Relay) Import(ctx context.Context, log *logrus.Entry, rec types.CallRecord) error {
	log.WithField("recording_url", rec.RecordingURL).Info("downloading audio")
	audio, err := r.recordings.Fetch(ctx, rec.RecordingURL)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer audio.Close()

	log.WithField("file_name", rec.FileName).Info("uploading audio to evaluagent")
	audioPath, err := r.api.UploadAudio(ctx, rec.FileName, audio)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	log.WithField("audio_file_path", audioPath).Info("audio uploaded")

	log.Info("creating imported contact")
	resp, err := r.api.CreateImportedContact(ctx, types.ImportedContact{
		Reference:     rec.Reference,
		AgentEmail:    rec.AgentEmail,
		ContactDate:   rec.ContactDate,
		Channel:       types.ChannelTelephony,
		AudioFilePath: audioPath,
	})
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	log.WithField("response", string(resp)).Info("imported contact created")
	return nil
}

// errorDetail prefers the downstream response body over the Go error text.
func errorDetail(err error) string {
	var apiErr *evaluagent.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	var statusErr *recording.StatusError
	if errors.As(err, &statusErr) && statusErr.Body != "" {
		return statusErr.Body
	}
	return err.Error()
}
