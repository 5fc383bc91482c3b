package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp accepts either an RFC3339 string or epoch milliseconds on input
// and always encodes as RFC3339 (null when zero).
type Timestamp struct {
	time.Time
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			ts.Time = time.Time{}
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		ts.Time = t
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("parse timestamp %s: %w", string(data), err)
	}
	if ms == 0 {
		ts.Time = time.Time{}
		return nil
	}
	ts.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// Ptr returns nil for the zero timestamp so the database default applies.
func (ts Timestamp) Ptr() *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
