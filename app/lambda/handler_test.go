package lambda

import (
	"context"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/server"
)

func newHandler(source ProxySource) *LambdaHandler {
	hello := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := "hello " + r.PathValue("script")
		if id := r.Header.Get(RequestIDHeader); id != "" {
			body += " " + id
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(body))
	})

	return NewLambdaHandler(LambdaHandlerParams{
		Config:   Config{ProxySource: source},
		Handlers: []*server.HttpHandler{server.AsHttpHandler("/js/{script...}", hello).Handler},
		Context:  context.Background(),
		Logger:   zap.NewNop(),
	})
}

func TestLambdaHandler_InvalidProxySourceFailsStart(t *testing.T) {
	assert.ErrorContains(t, newHandler("SQS").Start(), "invalid proxy source")
}

func TestLambdaHandler_ProxyFunction(t *testing.T) {
	for _, source := range []ProxySource{ProxySourceApiGatewayV1, ProxySourceApiGatewayV2, ProxySourceAlb} {
		t.Run(source.String(), func(t *testing.T) {
			fn, err := newHandler(source).proxy()
			require.NoError(t, err)
			assert.NotNil(t, fn)
		})
	}
}

func TestLambdaHandler_InvalidProxySource(t *testing.T) {
	_, err := newHandler("SQS").proxy()
	assert.ErrorContains(t, err, "invalid proxy source: SQS")
}

func TestLambdaHandler_RoutesApiGatewayV2(t *testing.T) {
	fn, err := newHandler(ProxySourceApiGatewayV2).proxy()
	require.NoError(t, err)

	proxy, ok := fn.(func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error))
	require.True(t, ok)

	res, err := proxy(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: "/js/greet.ts",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: http.MethodGet,
				Path:   "/js/greet.ts",
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, "hello greet.ts", res.Body)
}

func TestLambdaHandler_ForwardsRequestID(t *testing.T) {
	fn, err := newHandler(ProxySourceApiGatewayV1).proxy()
	require.NoError(t, err)

	proxy, ok := fn.(func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error))
	require.True(t, ok)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
		AwsRequestID: "req-1",
	})

	res, err := proxy(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/js/add.js",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello add.js req-1", res.Body)

	res, err = proxy(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/js/add.js",
		Headers:    map[string]string{RequestIDHeader: "mine"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello add.js mine", res.Body)
}
