package main

import (
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// apiClient talks to the chat server's REST API and copies response bodies
// to out.
type apiClient struct {
	http *resty.Client
	out  io.Writer
}

func newAPIClient(baseURL string, out io.Writer) *apiClient {
	return &apiClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(60 * time.Second).
			SetHeader("Content-Type", "application/json"),
		out: out,
	}
}

func (c *apiClient) get(path string, query map[string]string) error {
	resp, err := c.http.R().SetQueryParams(query).Get(path)
	return c.emit(resp, err)
}

func (c *apiClient) post(path string, query map[string]string, body any) error {
	req := c.http.R().SetQueryParams(query)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(path)
	return c.emit(resp, err)
}

func (c *apiClient) emit(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, err = fmt.Fprintln(c.out, resp.String())
	return err
}
