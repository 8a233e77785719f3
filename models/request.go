package models

import (
	"net/http"
	"sort"
	"strings"
)

// Request is the invocation request handed to a script. It is
// immutable once constructed.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    string
}

// NewRequest creates a request from transport values. Header keys
// are lower-cased; if a key occurs more than once, the last value wins.
func NewRequest(method, path string, header http.Header, body string) Request {
	headers := make(map[string]string, len(header))
	for k, v := range header {
		if len(v) == 0 {
			continue
		}
		headers[strings.ToLower(k)] = v[len(v)-1]
	}

	return Request{
		Method:  method,
		Path:    path,
		Headers: headers,
		Body:    body,
	}
}

// Header returns the value of the header with the given key, which
// is matched case-insensitively.
func (r Request) Header(key string) (string, bool) {
	v, ok := r.Headers[strings.ToLower(key)]
	return v, ok
}

// HeaderKeys returns the header keys in lexical order.
func (r Request) HeaderKeys() []string {
	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
