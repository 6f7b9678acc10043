package oauthmodel

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldError is one entry of a validation failure list.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
}

// Path joins Loc with dots, e.g. ["body","email"] -> "body.email".
func (f FieldError) Path() string {
	if len(f.Loc) == 0 {
		return "Error"
	}
	parts := make([]string, 0, len(f.Loc))
	for _, p := range f.Loc {
		switch v := p.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, fmt.Sprintf("%g", v))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, ".")
}

func (f FieldError) String() string {
	return f.Path() + ": " + f.Msg
}

// ErrorPayload is the structured body of an unsuccessful response. Detail is
// either a single message or a list of field errors.
type ErrorPayload struct {
	Detail  json.RawMessage `json:"detail,omitempty"`
	Message string          `json:"message,omitempty"`

	raw json.RawMessage
}

// ParseErrorPayload decodes raw leniently. Non-object payloads yield an
// ErrorPayload that only remembers the raw text.
func ParseErrorPayload(raw json.RawMessage) ErrorPayload {
	var p ErrorPayload
	if len(raw) == 0 {
		return p
	}
	_ = json.Unmarshal(raw, &p)
	p.raw = raw
	return p
}

// FieldErrors returns the detail list, or nil when detail is not a list.
func (p ErrorPayload) FieldErrors() []FieldError {
	var fe []FieldError
	if err := json.Unmarshal(p.Detail, &fe); err != nil {
		return nil
	}
	return fe
}

// Text renders a human-readable message: a string detail, then the joined
// field errors, then the message field, then the raw JSON text, then fallback.
func (p ErrorPayload) Text(fallback string) string {
	if len(p.Detail) > 0 && string(p.Detail) != "null" {
		var s string
		if err := json.Unmarshal(p.Detail, &s); err == nil {
			return s
		}
		if fe := p.FieldErrors(); fe != nil {
			msgs := make([]string, 0, len(fe))
			for _, f := range fe {
				msgs = append(msgs, f.String())
			}
			return strings.Join(msgs, ", ")
		}
	}
	if p.Message != "" {
		return p.Message
	}
	if len(p.raw) > 0 && string(p.raw) != "null" {
		return string(p.raw)
	}
	return fallback
}
