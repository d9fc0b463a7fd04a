package kronos

import (
	"context"
	"fmt"
	"strings"

	xhttp "CryptoPredict/pkg/http"
)

// HTTPRunner asks a model service for the payload: POST {baseURL}/predict {"symbol","days"}.
// The response body has the same shape as the subprocess stdout.
type HTTPRunner struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPRunner calls a model service at baseURL.
func NewHTTPRunner(baseURL string, opts ...xhttp.ClientOption) *HTTPRunner {
	return &HTTPRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

type predictRequest struct {
	Symbol string `json:"symbol"`
	Days   int    `json:"days"`
}

func (r *HTTPRunner) Run(ctx context.Context, symbol string, days int) ([]byte, error) {
	if r.baseURL == "" {
		return nil, fmt.Errorf("%w: model service url not configured", ErrExit)
	}
	var raw []byte
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    r.baseURL + "/predict",
		Body:   predictRequest{Symbol: symbol, Days: days},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: post /predict: %v", ErrExit, err)
	}
	return raw, nil
}
