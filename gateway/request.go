package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Request describes one call relative to the API prefix.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is sent raw for []byte, string and io.Reader, form-encoded for
	// url.Values and JSON-encoded otherwise.
	Body any
	// SkipRefresh disables 401 recovery. The auth exchanges themselves use it.
	SkipRefresh bool
}

func Get(path string) Request {
	return Request{Method: http.MethodGet, Path: path}
}

func Post(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Body: body}
}

func Put(path string, body any) Request {
	return Request{Method: http.MethodPut, Path: path, Body: body}
}

func Patch(path string, body any) Request {
	return Request{Method: http.MethodPatch, Path: path, Body: body}
}

func Delete(path string) Request {
	return Request{Method: http.MethodDelete, Path: path}
}

func (r Request) WithQuery(q url.Values) Request {
	r.Query = q
	return r
}

func (r Request) WithHeader(key, value string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	r.Header = h
	return r
}

func (r Request) NoRefresh() Request {
	r.SkipRefresh = true
	return r
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// encodeBody buffers the body so a retried request sends identical bytes.
// A nil result means the request has no body.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, contentTypeJSON, nil
	case string:
		return []byte(b), contentTypeJSON, nil
	case url.Values:
		return []byte(b.Encode()), contentTypeForm, nil
	case io.Reader:
		raw, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("read request body: %w", err)
		}
		return raw, contentTypeJSON, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return raw, contentTypeJSON, nil
	}
}

// joinURL appends prefix and path to base, collapsing the slashes at each
// join and adding a leading slash to path when missing.
func joinURL(base, prefix, path string, query url.Values) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(base, "/"))
	if p := strings.Trim(prefix, "/"); p != "" {
		sb.WriteString("/")
		sb.WriteString(p)
	}
	sb.WriteString("/")
	sb.WriteString(strings.TrimLeft(path, "/"))

	if len(query) > 0 {
		if strings.Contains(path, "?") {
			sb.WriteString("&")
		} else {
			sb.WriteString("?")
		}
		sb.WriteString(query.Encode())
	}
	return sb.String()
}

func newBodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}
