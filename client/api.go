package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// APIClient talks to the data API over HTTP.
type APIClient struct {
	baseURL  string
	token    string
	clientID string

	http    *fasthttp.Client
	timeout time.Duration
}

// NewAPIClient creates a client for the given server base URL (no trailing
// slash). clientID identifies this connection in write requests so the server
// can tag broadcasts with their origin.
func NewAPIClient(baseURL, token, clientID string) *APIClient {
	return &APIClient{
		baseURL:  baseURL,
		token:    token,
		clientID: clientID,
		http:     &fasthttp.Client{},
		timeout:  10 * time.Second,
	}
}

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetData fetches the current value of one bucket. A team with no data yet
// returns an empty array, not an error.
func (a *APIClient) GetData(dataType string) (json.RawMessage, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(a.baseURL + "/api/data/" + dataType)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+a.token)

	if err := a.http.DoTimeout(req, resp, a.timeout); err != nil {
		return nil, fmt.Errorf("get %s: %w", dataType, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("get %s: %s", dataType, serverError(resp))
	}

	var body dataResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("get %s: decode response: %w", dataType, err)
	}
	if len(body.Data) == 0 {
		return json.RawMessage("[]"), nil
	}
	return body.Data, nil
}

// GetAllData fetches the aggregate subset of buckets keyed by field name.
func (a *APIClient) GetAllData() (map[string]json.RawMessage, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(a.baseURL + "/api/data/all")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+a.token)

	if err := a.http.DoTimeout(req, resp, a.timeout); err != nil {
		return nil, fmt.Errorf("get all: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("get all: %s", serverError(resp))
	}

	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("get all: decode response: %w", err)
	}
	return body.Data, nil
}

// SaveData replaces one bucket with payload.
func (a *APIClient) SaveData(dataType string, payload json.RawMessage) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(a.baseURL + "/api/data/" + dataType)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("X-Client-ID", a.clientID)
	req.SetBody(payload)

	if err := a.http.DoTimeout(req, resp, a.timeout); err != nil {
		return fmt.Errorf("save %s: %w", dataType, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("save %s: %s", dataType, serverError(resp))
	}
	return nil
}

func serverError(resp *fasthttp.Response) string {
	var body errorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return fmt.Sprintf("server returned %d: %s", resp.StatusCode(), body.Error)
	}
	return fmt.Sprintf("server returned %d", resp.StatusCode())
}
