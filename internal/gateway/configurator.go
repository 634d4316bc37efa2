package gateway

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"skeleton-viewer/internal/types"
)

// Reply is the outcome of one camera configuration request.
type Reply struct {
	CameraID      int
	CorrelationID string
	Status        int
	Body          string
	Elapsed       time.Duration
}

// Configurator sends the startup configuration to every camera once.
type Configurator struct {
	BaseURL    string
	APIVersion string
	Service    string
	Config     types.CameraConfig
	Timeout    time.Duration

	wg sync.WaitGroup
}

// ConfigureAll fires one request per camera and returns without waiting.
// Replies are handed to onReply, or logged when onReply is nil. Failed
// requests are not retried.
func (c *Configurator) ConfigureAll(ctx context.Context, cameras int, onReply func(Reply)) {
	if onReply == nil {
		onReply = LogReply
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for id := 0; id < cameras; id++ {
		c.wg.Add(1)
		go func(id int) {
			defer c.wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			correlationID := uuid.NewString()
			start := time.Now()
			status, body := SetConfig(reqCtx, c.BaseURL, c.APIVersion, c.Service, id, c.Config, correlationID)
			onReply(Reply{
				CameraID:      id,
				CorrelationID: correlationID,
				Status:        status,
				Body:          body,
				Elapsed:       time.Since(start),
			})
		}(id)
	}
}

// Wait blocks until every reply has been delivered.
func (c *Configurator) Wait() {
	c.wg.Wait()
}

func LogReply(r Reply) {
	log.Printf("camera %d config reply: status=%d id=%s elapsed=%s body=%q", r.CameraID, r.Status, r.CorrelationID, r.Elapsed.Round(time.Millisecond), r.Body)
}
