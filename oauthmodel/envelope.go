package oauthmodel

import (
	"bytes"
	"encoding/json"
)

// Envelope is the backend's uniform success wrapper.
type Envelope struct {
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Pagination accompanies list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// HasData reports whether Data is present and not JSON null.
func (e Envelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeData decodes the payload in Data into out.
func (e Envelope) DecodeData(out any) error {
	if !e.HasData() {
		return ErrEmptyEnvelope
	}
	return json.Unmarshal(e.Data, out)
}

// UnwrapData decodes raw as an envelope when it is one (an object with a
// "data" key) and returns the inner payload; otherwise raw is returned as-is.
// Some backend routes reply with a bare model instead of an envelope.
func UnwrapData(raw json.RawMessage) (json.RawMessage, *Envelope) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return raw, nil
	}
	if _, ok := probe["data"]; !ok {
		return raw, nil
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw, nil
	}
	return env.Data, &env
}
