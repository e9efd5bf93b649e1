package relay

import (
	"net/url"
	"path"

	"evaluagent-relay-go/internal/types"
)

const fallbackFileName = "recording"

// Extract maps a webhook event onto the call record to import. Only the
// primary flow (flows[0]) and its primary recording (recordingsData[0]) are
// read; later entries are never decoded. ok is false when the event must not
// be imported, in which case out says why. startTime is parsed last so an
// event without a recording is skipped whatever its start time holds.
func Extract(ev types.Event) (rec types.CallRecord, out Outcome, ok bool) {
	if len(ev.Flows) == 0 {
		return types.CallRecord{}, skipped(MsgNoFlows, "data.flows missing or empty"), false
	}
	flow := types.DecodeFlow(ev.Flows[0])

	recording, found := flow.PrimaryRecording()
	if !found {
		return types.CallRecord{}, skipped(MsgNoRecording, "no recording url on primary flow"), false
	}
	if flow.CallerEmail == "" {
		return types.CallRecord{}, rejected(MsgNoAgentEmail, "caller.email missing"), false
	}
	date, found := flow.ContactDate()
	if !found {
		return types.CallRecord{}, rejected(MsgNoStartTime, "startTime missing or not epoch millis"), false
	}

	rec = types.CallRecord{
		Reference:    ev.ID,
		AgentEmail:   flow.CallerEmail,
		ContactDate:  date,
		RecordingURL: recording.URL,
		FileName:     recording.FileName,
	}
	if rec.FileName == "" {
		rec.FileName = FileNameFromURL(rec.RecordingURL)
	}
	return rec, Outcome{}, true
}

// Check applies the import preconditions to an already flattened record.
func Check(rec types.CallRecord) (Outcome, bool) {
	if rec.RecordingURL == "" {
		return skipped(MsgNoRecording, "no recording url"), false
	}
	if rec.AgentEmail == "" {
		return rejected(MsgNoAgentEmail, "caller.email missing"), false
	}
	if rec.ContactDate == "" {
		return rejected(MsgNoStartTime, "startTime missing"), false
	}
	return Outcome{}, true
}

// FileNameFromURL returns the last path segment of a recording URL.
func FileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fallbackFileName
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fallbackFileName
	}
	return name
}
