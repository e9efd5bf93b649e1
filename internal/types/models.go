package types

// CallRecord is the flattened view of one call that gets imported.
type CallRecord struct {
	Reference    string `json:"reference"`
	AgentEmail   string `json:"agent_email"`
	ContactDate  string `json:"contact_date"`
	RecordingURL string `json:"recording_url"`
	FileName     string `json:"file_name"`
}

// ChannelTelephony must exist as a channel in the Evaluagent account.
const ChannelTelephony = "Telephony"

// ImportedContact is the payload of POST /quality/imported-contacts.
type ImportedContact struct {
	Reference     string `json:"reference"`
	AgentEmail    string `json:"agent_email"`
	ContactDate   string `json:"contact_date"`
	Channel       string `json:"channel"`
	AudioFilePath string `json:"audio_file_path"`
}

type ImportedContactRequest struct {
	Data ImportedContact `json:"data"`
}

// UploadResult is the response of POST /quality/imported-contacts/upload-audio.
type UploadResult struct {
	Path string `json:"path"`
}
