package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the only protocol version accepted.
const Version = "2.0"

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

// Call is a single request or notification.
type Call struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the call carries no id. A null id is
// treated as absent.
func (c Call) IsNotification() bool {
	id := bytes.TrimSpace(c.ID)
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

func ParseError(detail string) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: detail}
}

func InvalidRequest(detail string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid Request", Data: detail}
}

func MethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
}

func InternalError(detail string) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: detail}
}

// Response carries either a result or an error. A missing id is
// serialized as null.
type Response struct {
	Version string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

func success(id json.RawMessage, result json.RawMessage) Response {
	return Response{Version: Version, Result: result, ID: id}
}

func failure(id json.RawMessage, err *Error) Response {
	return Response{Version: Version, Error: err, ID: id}
}

// Reply is the outcome of one envelope: a single response, a batch of
// responses, or nothing at all.
type Reply struct {
	single  *Response
	batch   []Response
	batched bool
}

// Empty reports whether there is nothing to transmit.
func (r Reply) Empty() bool {
	return !r.batched && r.single == nil
}

// Batch reports whether the reply answers a batch.
func (r Reply) Batch() bool {
	return r.batched
}

// Responses returns the responses of the reply in transmission order.
func (r Reply) Responses() []Response {
	if r.batched {
		return r.batch
	}
	if r.single != nil {
		return []Response{*r.single}
	}
	return nil
}

func (r Reply) MarshalJSON() ([]byte, error) {
	switch {
	case r.batched && r.batch == nil:
		return []byte("[]"), nil
	case r.batched:
		return json.Marshal(r.batch)
	case r.single != nil:
		return json.Marshal(r.single)
	default:
		return []byte("null"), nil
	}
}

// ErrorReply answers an envelope that could not be processed at all.
func ErrorReply(err *Error) Reply {
	res := failure(nil, err)
	return Reply{single: &res}
}
