package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"umatools/pkg/log"
)

// NewRetryableClient builds the CDN client. The timeout bounds the wait for
// response headers only, so large bodies keep streaming.
func NewRetryableClient(retryMax int, retryWaitMin, retryWaitMax, timeout time.Duration) *retryablehttp.Client {
	transport := cleanhttp.DefaultPooledTransport()
	transport.ResponseHeaderTimeout = timeout

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Transport: transport}
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil
	client.CheckRetry = retryPolicy
	client.RequestLogHook = logRetry
	return client
}

// retryPolicy retries connection errors, timeouts, 429 and 5xx. A cancelled
// context is never retried.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 {
		return
	}
	log.Warn().Str("url", req.URL.String()).Int("attempt", attempt).Msg("Retrying request")
}
