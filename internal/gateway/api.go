package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CorrelationHeader carries the id that ties a configuration reply to its request.
const CorrelationHeader = "X-Correlation-ID"

// BuildPaths lists the candidate URLs for one camera resource, most specific first.
func BuildPaths(baseURL string, apiVersion string, service string, cameraID int, kind string) []string {
	baseURL = strings.TrimRight(baseURL, "/")
	apiVersion = strings.Trim(apiVersion, "/")
	service = strings.Trim(service, "/")
	kind = strings.Trim(kind, "/")
	if baseURL == "" || service == "" || kind == "" || cameraID < 0 {
		return nil
	}
	id := strconv.Itoa(cameraID)

	paths := make([]string, 0, 3)
	if apiVersion != "" {
		paths = append(paths, baseURL+"/"+service+"/api/"+apiVersion+"/"+id+"/"+kind)
		paths = append(paths, baseURL+"/api/"+apiVersion+"/"+service+"/"+id+"/"+kind)
	}
	paths = append(paths, baseURL+"/"+service+"/"+id+"/"+kind)
	return paths
}

// SetConfig PUTs cfg as JSON to the camera's config resource and returns the
// status code and trimmed body of the first non-404 answer.
func SetConfig(ctx context.Context, baseURL string, apiVersion string, service string, cameraID int, cfg any, correlationID string) (int, string) {
	if baseURL == "" {
		return http.StatusBadRequest, "missing base url"
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return http.StatusBadRequest, "invalid config"
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if correlationID != "" {
		header.Set(CorrelationHeader, correlationID)
	}
	return doRequest(ctx, http.MethodPut, BuildPaths(baseURL, apiVersion, service, cameraID, "config"), payload, header)
}

// GetStatus fetches the camera's status resource.
func GetStatus(ctx context.Context, baseURL string, apiVersion string, service string, cameraID int) (int, string) {
	if baseURL == "" {
		return http.StatusBadRequest, "missing base url"
	}
	return doRequest(ctx, http.MethodGet, BuildPaths(baseURL, apiVersion, service, cameraID, "status"), nil, nil)
}

var client = &http.Client{Timeout: 2 * time.Second}

func doRequest(ctx context.Context, method string, paths []string, payload []byte, header http.Header) (int, string) {
	if len(paths) == 0 {
		return http.StatusBadRequest, "missing path"
	}
	lastErr := ""
	for _, path := range paths {
		var body io.Reader
		if len(payload) > 0 {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, path, body)
		if err != nil {
			continue
		}
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err.Error()
			continue
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			return resp.StatusCode, strings.TrimSpace(string(respBody))
		}
	}
	if lastErr != "" {
		return http.StatusServiceUnavailable, lastErr
	}
	return http.StatusNotFound, "not found"
}
