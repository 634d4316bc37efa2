package display

import (
	"context"
	"log"
	"time"
)

// DefaultIdle bounds how long the loop waits for a composite before polling anyway.
const DefaultIdle = 30 * time.Millisecond

// Run shows each composite from mailbox on every surface until ctx ends.
// Window toolkits require this to run on the thread that created the window,
// so call it from the locked main goroutine.
func Run(ctx context.Context, mailbox *Mailbox, surfaces []Surface, idle time.Duration) {
	if idle <= 0 {
		idle = DefaultIdle
	}
	for {
		composite, ok := mailbox.Take(ctx, idle)
		if ok {
			for _, surface := range surfaces {
				if err := surface.Show(composite); err != nil {
					log.Printf("display show failed: %v", err)
				}
			}
			composite.Close()
		}
		for _, surface := range surfaces {
			surface.Poll()
		}
		if ctx.Err() != nil {
			return
		}
	}
}
