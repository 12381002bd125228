package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyClient implements Client on top of resty.
type RestyClient struct {
	client *resty.Client
}

func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: NewRestyHTTPClient(timeout)}
}

// NewRestyHTTPClient returns a bare resty.Client for callers that need verbs
// beyond Client, such as the webhook publisher.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().SetTimeout(timeout)
}

func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return r.do(ctx, http.MethodGet, url, headers, nil)
}

func (r *RestyClient) PostJSON(ctx context.Context, url string, headers map[string]string, body any) (Response, error) {
	return r.do(ctx, http.MethodPost, url, headers, body)
}

func (r *RestyClient) do(ctx context.Context, method, url string, headers map[string]string, body any) (Response, error) {
	req := r.client.R().SetContext(ctx).SetHeaders(headers)
	if body != nil {
		req.SetBody(body).SetHeader("Content-Type", "application/json")
	}
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return restyResponse{resp}, nil
}

type restyResponse struct {
	resp *resty.Response
}

func (r restyResponse) Body() []byte    { return r.resp.Body() }
func (r restyResponse) StatusCode() int { return r.resp.StatusCode() }
