package models

import "net/http"

// Response is the single response a script produces for an invocation.
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// NewResponse creates a response without headers.
func NewResponse(status int, body string) Response {
	return Response{
		Status:  status,
		Headers: map[string]string{},
		Body:    body,
	}
}

// NotFound creates a 404 response carrying msg.
func NotFound(msg string) Response {
	return NewResponse(http.StatusNotFound, msg)
}

// InternalError creates a 500 response carrying msg.
func InternalError(msg string) Response {
	return NewResponse(http.StatusInternalServerError, msg)
}

// OK reports whether the response has a 200 status.
func (r Response) OK() bool {
	return r.Status == http.StatusOK
}
