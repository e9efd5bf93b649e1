package relay

import "net/http"

// Kind tags how a delivery ended.
type Kind int

const (
	// Processed: audio uploaded and contact created.
	Processed Kind = iota
	// Skipped: payload carries nothing importable; acknowledged so the sender stops retrying.
	Skipped
	// Rejected: payload is importable in shape but misses a field the sender must fix.
	Rejected
	// Failed: a downstream call failed.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Processed:
		return "processed"
	case Skipped:
		return "skipped"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	MsgProcessed    = "Webhook processed successfully."
	MsgNoFlows      = "Webhook received, but essential data is missing."
	MsgNoRecording  = "Webhook received, but no recording to process."
	MsgNoAgentEmail = "Cannot process webhook without agent email."
	MsgNoStartTime  = "Cannot process webhook without call start time."
	MsgFailed       = "Error processing webhook."
)

// Outcome is the result of one delivery. Message is safe to return to the
// sender; Reason and Err are for logs only.
type Outcome struct {
	Kind    Kind
	Message string
	Reason  string
	Err     error
}

// Status maps the outcome to the HTTP status returned to the webhook sender.
func (o Outcome) Status() int {
	switch o.Kind {
	case Processed, Skipped:
		return http.StatusOK
	case Rejected:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func processed() Outcome {
	return Outcome{Kind: Processed, Message: MsgProcessed}
}

func skipped(msg, reason string) Outcome {
	return Outcome{Kind: Skipped, Message: msg, Reason: reason}
}

func rejected(msg, reason string) Outcome {
	return Outcome{Kind: Rejected, Message: msg, Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Kind: Failed, Message: MsgFailed, Reason: errorDetail(err), Err: err}
}
