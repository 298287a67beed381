package sdk

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"
)

// Client is a thin HTTP wrapper the agent drives through the 402 flow.
type Client struct {
	SCli *gentleman.Client
}

func NewClient() *Client {
	return &Client{
		SCli: gentleman.New(),
	}
}

type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// do honors the caller's context as a request deadline. The request context
// itself is left alone: gentleman carries its middleware store in there.
func (c *Client) do(ctx context.Context, method, rawurl string, headers map[string]string) (*response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := c.SCli.Request()
	req.Method(method)
	req.URL(rawurl)
	if deadline, ok := ctx.Deadline(); ok {
		req.Use(timeout.Request(time.Until(deadline)))
	}
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if resp.RawResponse == nil {
		return nil, errors.New("nil raw response")
	}
	return &response{
		StatusCode: resp.StatusCode,
		Header:     resp.RawResponse.Header,
		Body:       resp.Bytes(),
	}, nil
}
