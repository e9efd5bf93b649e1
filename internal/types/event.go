package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedJSON is returned when a delivery body is not JSON at all.
var ErrMalformedJSON = errors.New("malformed JSON")

// Event is a Wildix "call:completed" delivery reduced to what the relay
// reads. Decoding is lenient: a field of an unexpected type reads as absent,
// and fields the relay never consults are not decoded.
type Event struct {
	ID    string            // string or numeric id, as text
	Flows []json.RawMessage // call legs, decoded on demand
}

// DecodeEvent fails only on syntactically invalid JSON. A body that is not an
// object, or whose data/flows have another shape, decodes with no flows.
func DecodeEvent(raw []byte) (Event, error) {
	if !json.Valid(raw) {
		return Event{}, ErrMalformedJSON
	}
	var top struct {
		ID   json.RawMessage `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &top); err != nil {
		return Event{}, nil
	}
	ev := Event{ID: scalarText(top.ID)}

	var data struct {
		Flows json.RawMessage `json:"flows"`
	}
	if err := json.Unmarshal(top.Data, &data); err != nil {
		return ev, nil
	}
	var flows []json.RawMessage
	if err := json.Unmarshal(data.Flows, &flows); err == nil {
		ev.Flows = flows
	}
	return ev, nil
}

// Flow is one call leg with its fields kept raw until they are checked.
type Flow struct {
	CallerEmail string
	StartTime   json.RawMessage
	Recordings  []json.RawMessage
}

type Recording struct {
	URL      string
	FileName string
}

// DecodeFlow reads a call leg. Anything that is not an object is an empty flow.
func DecodeFlow(raw json.RawMessage) Flow {
	var f struct {
		Caller         json.RawMessage `json:"caller"`
		StartTime      json.RawMessage `json:"startTime"`
		RecordingsData json.RawMessage `json:"recordingsData"`
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return Flow{}
	}
	out := Flow{StartTime: f.StartTime}

	var caller struct {
		Email json.RawMessage `json:"email"`
	}
	if err := json.Unmarshal(f.Caller, &caller); err == nil {
		out.CallerEmail = strings.TrimSpace(stringValue(caller.Email))
	}
	var recs []json.RawMessage
	if err := json.Unmarshal(f.RecordingsData, &recs); err == nil {
		out.Recordings = recs
	}
	return out
}

// PrimaryRecording returns recordingsData[0]; ok is false when it is missing
// or carries no URL.
func (f Flow) PrimaryRecording() (Recording, bool) {
	if len(f.Recordings) == 0 {
		return Recording{}, false
	}
	var r struct {
		URL      json.RawMessage `json:"url"`
		FileName json.RawMessage `json:"fileName"`
	}
	if err := json.Unmarshal(f.Recordings[0], &r); err != nil {
		return Recording{}, false
	}
	rec := Recording{
		URL:      strings.TrimSpace(stringValue(r.URL)),
		FileName: strings.TrimSpace(stringValue(r.FileName)),
	}
	return rec, rec.URL != ""
}

// ContactDate renders startTime as ISO-8601; ok is false when it is absent,
// not numeric or out of range.
func (f Flow) ContactDate() (string, bool) {
	if len(f.StartTime) == 0 {
		return "", false
	}
	var e EpochMillis
	if err := json.Unmarshal(f.StartTime, &e); err != nil || !e.Valid {
		return "", false
	}
	return e.ISO8601(), true
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// scalarText returns a JSON string's value or a JSON number's literal text.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		return stringValue(raw)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}
