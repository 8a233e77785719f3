package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/config"
	"github.com/lambda-feedback/scripthost/internal/jsonrpc"
	"github.com/lambda-feedback/scripthost/runtime"
)

type RPCHandlerParams struct {
	fx.In

	Dispatcher *jsonrpc.Dispatcher
	Config     config.Config
	Log        *zap.Logger
}

func NewRPCHandler(params RPCHandlerParams) *RPCHandler {
	return &RPCHandler{
		dispatcher:   params.Dispatcher,
		apiKey:       params.Config.Auth.Key,
		maxBodyBytes: params.Config.Runtime.MaxBodyBytes,
		log:          params.Log,
	}
}

// RPCHandler serves JSON-RPC 2.0 envelopes. Protocol level failures are
// answered with status 200 and an error object.
type RPCHandler struct {
	dispatcher   *jsonrpc.Dispatcher
	apiKey       string
	maxBodyBytes int64
	log          *zap.Logger
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("path", r.URL.Path))

	if !authorized(r, h.apiKey) {
		log.Debug("unauthorized request")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if !isJSON(r.Header.Get("Content-Type")) {
		log.Debug("invalid content type", zap.String("content_type", r.Header.Get("Content-Type")))
		h.write(w, jsonrpc.ErrorReply(jsonrpc.InvalidRequest("content type must be application/json")), log)
		return
	}

	body, err := readBody(w, r, h.maxBodyBytes)
	if errors.Is(err, runtime.ErrBodyTooLarge) {
		h.write(w, jsonrpc.ErrorReply(jsonrpc.InvalidRequest(err.Error())), log)
		return
	}
	if err != nil {
		log.Debug("failed to read body", zap.Error(err))
		h.write(w, jsonrpc.ErrorReply(jsonrpc.ParseError(err.Error())), log)
		return
	}

	reply := h.dispatcher.Dispatch(r.Context(), body, r.Header)

	if reply.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.write(w, reply, log)
}

func (h *RPCHandler) write(w http.ResponseWriter, reply jsonrpc.Reply, log *zap.Logger) {
	data, err := json.Marshal(reply)
	if err != nil {
		log.Error("failed to encode reply", zap.Error(err))
		http.Error(w, "failed to encode reply", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		log.Debug("failed to write response", zap.Error(err))
	}
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
