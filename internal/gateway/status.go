package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CameraStatus is the last state the gateway reported for one camera.
type CameraStatus struct {
	CameraID int    `json:"camera_id"`
	State    string `json:"state"`
}

// Poll fetches every camera's status immediately and then once per interval
// until ctx ends.
func Poll(ctx context.Context, baseURL string, apiVersion string, service string, cameras int, interval time.Duration, update func([]CameraStatus)) {
	if baseURL == "" || update == nil || cameras < 1 {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		statuses := make([]CameraStatus, cameras)
		for id := range statuses {
			statuses[id] = CameraStatus{CameraID: id, State: fetchState(ctx, baseURL, apiVersion, service, id)}
		}
		update(statuses)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func fetchState(ctx context.Context, baseURL string, apiVersion string, service string, cameraID int) string {
	reqCtx, cancel := context.WithTimeout(ctx, 900*time.Millisecond)
	defer cancel()
	status, body := GetStatus(reqCtx, baseURL, apiVersion, service, cameraID)
	if status == http.StatusServiceUnavailable {
		return "error"
	}
	if status != http.StatusOK {
		return fmt.Sprintf("http_%d", status)
	}
	if body == "" {
		return "ok"
	}
	state, ok := extractState([]byte(body))
	if !ok {
		return "ok"
	}
	return state
}

func extractState(payload []byte) (string, bool) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", false
	}
	state := findState(decoded)
	if state == "" {
		return "", false
	}
	return strings.ToLower(state), true
}

func findState(value any) string {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range []string{"state", "status", "value"} {
			if entry, ok := v[key]; ok {
				switch inner := entry.(type) {
				case string:
					return inner
				default:
					if nested := findState(inner); nested != "" {
						return nested
					}
				}
			}
		}
	case []any:
		for _, entry := range v {
			if nested := findState(entry); nested != "" {
				return nested
			}
		}
	}
	return ""
}
