// Package runpod talks to the RunPod GraphQL API. It wraps the raw
// calls with status classification, network extraction, and tolerance
// for the API quirks the CLI has to live with.
package runpod

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPodNotFound is returned when the API has no pod for the given ID.
var ErrPodNotFound = errors.New("pod not found")

// APIError is a non-2xx response or a GraphQL-level error from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("runpod api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("runpod api: %s", e.Message)
}

type Client struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval: 5 * time.Second,
	}
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do posts a GraphQL query and decodes the data payload into out. A
// response body that is not valid JSON is reported as a DecodeError so
// callers can apply the terminate workaround.
func (c *Client) do(query string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"query": query,
	}
	if len(variables) > 0 {
		payload["variables"] = variables
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: string(body)}
	}

	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return &DecodeError{Err: err}
	}
	if len(gql.Errors) > 0 {
		return &APIError{Message: gql.Errors[0].Message}
	}

	if out != nil {
		if err := json.Unmarshal(gql.Data, out); err != nil {
			return &DecodeError{Err: err}
		}
	}
	return nil
}

// DecodeError marks a response the API sent back that could not be
// parsed as JSON. Terminate is known to do this even on success.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
