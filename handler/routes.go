package handler

import (
	"github.com/lambda-feedback/scripthost/internal/server"
	"github.com/lambda-feedback/scripthost/internal/telemetry"
)

func NewScriptRoute(handler *ScriptHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("/js/{script...}", handler)
}

func NewRPCRoute(handler *RPCHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("POST /rpc", handler)
}

func NewHealthRoute(handler *HealthHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("GET /health", handler)
}

func NewMetricsRoute(metrics *telemetry.Metrics) server.HttpHandlerResult {
	return server.AsHttpHandler("GET /metrics", metrics.Handler())
}
