package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/config"
	"github.com/lambda-feedback/scripthost/runtime"
)

type ScriptHandlerParams struct {
	fx.In

	Handler runtime.Handler
	Config  config.Config
	Log     *zap.Logger
}

func NewScriptHandler(params ScriptHandlerParams) *ScriptHandler {
	return &ScriptHandler{
		handler:      params.Handler,
		apiKey:       params.Config.Auth.Key,
		maxBodyBytes: params.Config.Runtime.MaxBodyBytes,
		log:          params.Log,
	}
}

// ScriptHandler serves /js/{script...}: the remainder of the path names
// the script that handles the request.
type ScriptHandler struct {
	handler      runtime.Handler
	apiKey       string
	maxBodyBytes int64
	log          *zap.Logger
}

func (h *ScriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)

	// Check for authorization
	if !authorized(r, h.apiKey) {
		log.Debug("unauthorized request")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := readBody(w, r, h.maxBodyBytes)
	if errors.Is(err, runtime.ErrBodyTooLarge) {
		log.Debug("request body too large", zap.Int64("limit", h.maxBodyBytes))
		writeResponse(w, runtime.NewErrorResponse(err), log)
		return
	}
	if err != nil {
		log.Debug("failed to read body", zap.Error(err))
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	request := runtime.Request{
		Script: r.PathValue("script"),
		Path:   r.URL.Path,
		Method: r.Method,
		Header: r.Header,
		Body:   body,
	}

	// Handle the request
	response := h.handler.Handle(r.Context(), request)

	writeResponse(w, response, log)
}

// MARK: - helpers

func authorized(r *http.Request, key string) bool {
	if key == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get("api-key")), []byte(key)) == 1
}

// readBody reads the request body, failing with runtime.ErrBodyTooLarge
// if it exceeds limit. A limit of zero disables the check.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	reader := r.Body
	if limit > 0 {
		reader = http.MaxBytesReader(w, r.Body, limit)
	}

	body, err := io.ReadAll(reader)

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return nil, runtime.ErrBodyTooLarge
	}

	return body, err
}

func writeResponse(w http.ResponseWriter, response runtime.Response, log *zap.Logger) {
	// Map response headers
	for k, v := range response.Header {
		for _, vv := range v {
			w.Header().Add(k, vv)
		}
	}

	// Write response headers and status code
	w.WriteHeader(response.StatusCode)

	// Write response body
	if _, err := w.Write(response.Body); err != nil {
		log.Debug("failed to write response", zap.Error(err))
	}
}
