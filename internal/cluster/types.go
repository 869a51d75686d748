package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WorkerInfo identifies a worker process in the pool. Addr is the worker's
// base URL and is the stable identity used for rank assignment: two workers
// never share an address for the lifetime of a run.
type WorkerInfo struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// RegisterRequest is sent by a worker to the coordinator on startup.
type RegisterRequest struct {
	Worker WorkerInfo `json:"worker"`
}

// WorkerListResponse is returned by the coordinator's /workers endpoint.
// Workers are listed in registration order; callers that need ranks must
// sort the addresses themselves.
type WorkerListResponse struct {
	Workers []WorkerInfo `json:"workers"`
}

// httpClient serves short control-plane requests (register, discovery,
// health). Calls that may legitimately block for a long time (op execution,
// lock acquisition, shuffle barriers) go through waitClient instead, which
// has no overall timeout and is bounded only by the caller's context.
var (
	httpClient = &http.Client{Timeout: 5 * time.Second}
	waitClient = &http.Client{}
)

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %s: %d: %s", url, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PostJSON posts body as JSON to url and decodes the response into out
// (out may be nil). Non-2xx responses are returned as errors carrying the
// response body, since worker-side failures travel back this way.
func PostJSON(ctx context.Context, url string, body, out any) error {
	return postJSON(ctx, httpClient, url, body, out)
}

// PostJSONWait is PostJSON without a client-side timeout, for requests that
// block server-side until a condition holds (op completion, lock grant).
// The caller's context is the only deadline.
func PostJSONWait(ctx context.Context, url string, body, out any) error {
	return postJSON(ctx, waitClient, url, body, out)
}

// PutJSON puts body as JSON to url, discarding the response body.
func PutJSON(ctx context.Context, url string, body any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return nil
}

// Delete issues a DELETE to url, ignoring the response body.
func Delete(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return nil
}

// GetJSON fetches url and decodes the JSON response into out.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
