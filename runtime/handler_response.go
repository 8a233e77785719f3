package runtime

import (
	"encoding/json"
	"errors"
	"net/http"
)

// getErrorStatusCode returns the status code for the given error.
func getErrorStatusCode(err error) int {
	for wellKnown, status := range wellKnownErrors {
		if errors.Is(err, wellKnown) {
			return status
		}
	}

	return http.StatusInternalServerError
}

// NewErrorResponse creates a JSON error response with the status code
// of err.
func NewErrorResponse(err error) Response {
	return newErrorResponse(err)
}

func newErrorResponse(err error) Response {
	statusCode := getErrorStatusCode(err)

	type responseError struct {
		Message string `json:"message"`
	}

	body, err := json.Marshal(struct {
		Error responseError `json:"error"`
	}{
		Error: responseError{Message: err.Error()},
	})
	if err != nil {
		return Response{StatusCode: http.StatusInternalServerError}
	}

	return newResponse(statusCode, body)
}

// newResponse creates a new JSON response.
func newResponse(status int, body []byte) Response {
	header := make(http.Header)
	header.Add("Content-Type", "application/json")

	return Response{
		StatusCode: status,
		Body:       body,
		Header:     header,
	}
}
