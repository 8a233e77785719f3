package lambda

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/server"
)

// RequestIDHeader carries the AWS request id of an invocation to scripts.
const RequestIDHeader = "X-Request-Id"

type LambdaHandlerParams struct {
	fx.In

	Config Config

	// Handlers are the routes of the HTTP surface, served through the
	// event proxy.
	Handlers []*server.HttpHandler `group:"handlers"`

	Context context.Context

	Logger *zap.Logger
}

// LambdaHandler serves the script routes as an AWS Lambda function.
type LambdaHandler struct {
	source  ProxySource
	ctx     context.Context
	cancel  context.CancelFunc
	handler http.Handler
	log     *zap.Logger
}

func NewLambdaHandler(params LambdaHandlerParams) *LambdaHandler {
	ctx, cancel := context.WithCancel(params.Context)

	return &LambdaHandler{
		source:  params.Config.ProxySource,
		ctx:     ctx,
		cancel:  cancel,
		handler: withRequestID(server.NewMux(params.Handlers), params.Logger),
		log:     params.Logger,
	}
}

func NewLifecycleHandler(params LambdaHandlerParams, lc fx.Lifecycle) *LambdaHandler {
	handler := NewLambdaHandler(params)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return handler.Start()
		},
		OnStop: func(context.Context) error {
			handler.Shutdown()
			return nil
		},
	})
	return handler
}

// Start validates the proxy source and starts receiving events in a
// new goroutine.
func (s *LambdaHandler) Start() error {
	proxy, err := s.proxy()
	if err != nil {
		return err
	}

	s.log.Debug("receiving lambda events", zap.Stringer("proxy_source", s.source))

	go lambda.StartWithOptions(proxy, lambda.WithContext(s.ctx))

	return nil
}

// Shutdown stops receiving events.
func (s *LambdaHandler) Shutdown() {
	s.cancel()
}

// proxy returns the event handler converting events of the configured
// source into HTTP requests.
func (s *LambdaHandler) proxy() (any, error) {
	switch s.source {
	case ProxySourceApiGatewayV1:
		return httpadapter.New(s.handler).ProxyWithContext, nil
	case ProxySourceApiGatewayV2:
		return httpadapter.NewV2(s.handler).ProxyWithContext, nil
	case ProxySourceAlb:
		return httpadapter.NewALB(s.handler).ProxyWithContext, nil
	default:
		return nil, fmt.Errorf("invalid proxy source: %s", s.source)
	}
}

// withRequestID exposes the AWS request id of the invocation as a
// request header, unless the caller already sent one.
func withRequestID(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc, ok := lambdacontext.FromContext(r.Context())
		if ok && lc.AwsRequestID != "" && r.Header.Get(RequestIDHeader) == "" {
			r.Header.Set(RequestIDHeader, lc.AwsRequestID)
		}

		if ok {
			log.Debug("handling lambda event",
				zap.String("aws_request_id", lc.AwsRequestID),
				zap.String("path", r.URL.Path))
		}

		next.ServeHTTP(w, r)
	})
}
