package model

import (
	"encoding/json"
)

// Options describe a toast to show. A nil DurationMs selects the configured
// default; zero or negative means the toast persists until closed.
type Options struct {
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	DurationMs *int   `json:"durationMs,omitempty"`
}

// Ms returns a pointer to ms, for building Options literals.
func Ms(ms int) *int {
	return &ms
}

// optionsWire accepts both the canonical field names and the event payload
// names used by page scripts (type, message, duration).
type optionsWire struct {
	Kind       string `json:"kind"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Message    string `json:"message"`
	DurationMs *int   `json:"durationMs"`
	Duration   *int   `json:"duration"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Options) UnmarshalJSON(data []byte) error {
	var w optionsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.Kind = firstNonEmpty(w.Kind, w.Type)
	o.Title = w.Title
	o.Body = firstNonEmpty(w.Body, w.Message)
	o.DurationMs = w.DurationMs
	if o.DurationMs == nil {
		o.DurationMs = w.Duration
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
