package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/lambda-feedback/scripthost/models"
)

var errInvalidResponse = errors.New("invalid response")

// response validates a value passed to sendResponse and converts it.
func (b *bridge) response(value goja.Value) (models.Response, error) {
	if goja.IsUndefined(value) || goja.IsNull(value) {
		return models.Response{}, fmt.Errorf("%w: response object required", errInvalidResponse)
	}

	// round trip through json, dropping functions and symbols
	data, err := json.Marshal(value.Export())
	if err != nil {
		return models.Response{}, fmt.Errorf("%w: %w", errInvalidResponse, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Response{}, fmt.Errorf("%w: %w", errInvalidResponse, err)
	}

	result, err := b.schema.Validate(raw)
	if err != nil {
		return models.Response{}, fmt.Errorf("%w: %w", errInvalidResponse, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return models.Response{}, fmt.Errorf("%w: %s", errInvalidResponse, strings.Join(msgs, "; "))
	}

	var res models.Response
	if err := json.Unmarshal(data, &res); err != nil {
		return models.Response{}, fmt.Errorf("%w: %w", errInvalidResponse, err)
	}

	if res.Headers == nil {
		res.Headers = map[string]string{}
	}

	return res, nil
}
