package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Doer executes backend requests. Consumers depend on this instead of the
// concrete requester so tests can swap the transport.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPRequester handles both request building and execution
type HTTPRequester struct {
	client  *http.Client
	builder *HTTPRequestBuilder
}

type HTTPRequesterParams struct {
	fx.In

	BackendConfig *config.BackendConfig
	Builder       *HTTPRequestBuilder
}

// NewHTTPRequester creates a new HTTPRequester with the configured timeout
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	timeout := config.MustDuration(params.BackendConfig.Timeout)
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRequester{
		client:  &http.Client{Timeout: timeout},
		builder: params.Builder,
	}
}

// New wires a requester without the fx graph.
func New(cfg *config.BackendConfig) *HTTPRequester {
	builder := NewHTTPRequestBuilder(HTTPRequestBuilderParams{
		BackendConfig: cfg,
		AuthManager:   NewHTTPAuthManager(cfg),
	})
	return NewHTTPRequester(HTTPRequesterParams{BackendConfig: cfg, Builder: builder})
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// Do builds and executes req. Non-2xx answers are returned as responses,
// not errors; see DoJSON.
func (r *HTTPRequester) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := r.builder.BuildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Debug("backend request", zap.String("method", httpReq.Method), zap.String("path", httpReq.URL.Path))

	resp, err := r.execute(httpReq)
	if err != nil {
		logger.Error("failed to execute request", zap.String("path", httpReq.URL.Path), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// DoJSON executes req, turns non-2xx answers into *APIError and decodes
// the body into out.
func DoJSON(ctx context.Context, d Doer, req *Request, out any) error {
	resp, err := d.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return ParseAPIError(resp)
	}
	return resp.Decode(out)
}

func (r *HTTPRequester) execute(httpReq *http.Request) (resp *Response, err error) {
	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       bodyBytes,
		Headers:    httpResp.Header,
	}, nil
}
