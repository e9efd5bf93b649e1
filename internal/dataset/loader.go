package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"evaluagent-relay-go/internal/types"
)

// Row is one spreadsheet line mapped onto a call record. Line is 1-based as
// shown by spreadsheet tools.
type Row struct {
	Line   int
	Record types.CallRecord
}

type columns struct {
	reference, email, start, url, file int
}

// Load reads the named sheet (first sheet when empty) and auto-detects the
// columns by header heuristics. Rows without an http(s) recording URL are
// skipped; every other row is returned even when fields are missing so the
// caller can report it.
func Load(path, sheet string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := detectColumns(rows[0])
	if cols.url == -1 {
		return nil, fmt.Errorf("no recording url column in header %v", rows[0])
	}

	var out []Row
	for i, r := range rows {
		if i == 0 {
			continue
		}
		rec := types.CallRecord{
			Reference:    cell(r, cols.reference),
			AgentEmail:   cell(r, cols.email),
			RecordingURL: cell(r, cols.url),
			FileName:     cell(r, cols.file),
			ContactDate:  contactDate(cell(r, cols.start)),
		}
		// skip rows that are not recordings quietly
		lu := strings.ToLower(rec.RecordingURL)
		if !(strings.HasPrefix(lu, "http://") || strings.HasPrefix(lu, "https://")) {
			continue
		}
		out = append(out, Row{Line: i + 1, Record: rec})
	}
	return out, nil
}

func detectColumns(header []string) columns {
	cols := columns{reference: -1, email: -1, start: -1, url: -1, file: -1}
	weakURL := -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "file"):
			if cols.file == -1 {
				cols.file = i
			}
		case strings.Contains(l, "email"):
			if cols.email == -1 {
				cols.email = i
			}
		case strings.Contains(l, "url") || strings.Contains(l, "link"):
			if cols.url == -1 {
				cols.url = i
			}
		case strings.Contains(l, "start") || strings.Contains(l, "date") || strings.Contains(l, "time"):
			if cols.start == -1 {
				cols.start = i
			}
		// a bare "Recording" or "Audio" header only names the url column when
		// nothing more specific does
		case strings.Contains(l, "recording") || strings.Contains(l, "audio"):
			if weakURL == -1 {
				weakURL = i
			}
		case strings.Contains(l, "reference") || strings.Contains(l, "call id") || strings.Contains(l, "callid") || l == "id":
			if cols.reference == -1 {
				cols.reference = i
			}
		}
	}
	if cols.url == -1 {
		cols.url = weakURL
	}
	return cols
}

func cell(r []string, idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

// contactDate accepts epoch milliseconds, RFC3339 or "YYYY-MM-DD HH:MM:SS"
// (taken as UTC) and returns the ISO-8601 form, or "" when unparseable.
func contactDate(v string) string {
	if v == "" {
		return ""
	}
	if ms, err := types.ParseEpochMillis(v); err == nil {
		return ms.ISO8601()
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC().Format(types.ISO8601Millis)
		}
	}
	return ""
}
