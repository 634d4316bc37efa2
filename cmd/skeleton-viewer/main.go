package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"skeleton-viewer/internal/codec"
	"skeleton-viewer/internal/config"
	"skeleton-viewer/internal/display"
	"skeleton-viewer/internal/gateway"
	"skeleton-viewer/internal/ingest"
	"skeleton-viewer/internal/output"
	"skeleton-viewer/internal/server"
	"skeleton-viewer/internal/simulator"
	"skeleton-viewer/internal/types"
	"skeleton-viewer/internal/viewer"
)

// The display window must be driven from the thread that created it, which is
// the main goroutine's thread.
func init() {
	runtime.LockOSThread()
}

type metrics struct {
	handled atomic.Uint64
	dropped atomic.Uint64
}

func main() {
	env := config.Load()
	var (
		cameras        = flag.Int("cameras", env.Cameras, "Number of cameras (must fill a grid)")
		endpoints      = flag.String("endpoints", strings.Join(env.Endpoints, ","), "Comma separated ZMQ publisher endpoints")
		frameSource    = flag.String("frame-source", env.FrameSource, "Topic prefix of frame messages")
		skeletonSource = flag.String("skeleton-source", env.SkeletonSource, "Topic prefix of skeleton messages")
		codecName      = flag.String("codec", env.Codec, "Payload codec (cbor, msgpack)")
		frameWidth     = flag.Int("frame-width", env.FrameWidth, "Camera frame width in pixels; frames of any other size are dropped")
		frameHeight    = flag.Int("frame-height", env.FrameHeight, "Camera frame height in pixels; frames of any other size are dropped")
		scale          = flag.Float64("scale", env.Scale, "Composite display scale")
		lineThickness  = flag.Int("line-thickness", env.LineThickness, "Skeleton line thickness in pixels")
		labelFrames    = flag.Bool("label-frames", env.LabelFrames, "Stamp the source and camera id on each frame")
		window         = flag.Bool("window", env.Window, "Show the composite in a desktop window")
		windowTitle    = flag.String("window-title", env.WindowTitle, "Desktop window title")
		port           = flag.Int("port", env.Port, "HTTP port for the web UI (0 disables it)")
		workers        = flag.Int("workers", env.Workers, "Number of message handling workers")
		gatewayURL     = flag.String("gateway-url", env.GatewayURL, "Camera gateway base URL (empty skips configuration)")
		gatewayVersion = flag.String("gateway-api-version", env.GatewayAPIVersion, "Camera gateway API version")
		gatewayPoll    = flag.Duration("gateway-poll", env.GatewayPoll, "Camera gateway status polling interval")
		samplingHz     = flag.Float64("sampling-hz", env.SamplingHz, "Sampling frequency requested from every camera")
		colorSpace     = flag.String("color-space", env.ColorSpace, "Color space requested from every camera")
		rawLogEnabled  = flag.Bool("raw-log", env.RawLogEnabled, "Write raw messages to disk")
		rawLogDir      = flag.String("raw-log-dir", env.RawLogDir, "Directory for raw message logs")
		ingestLogEvery = flag.Int("ingest-log-every", env.IngestLogEvery, "Log every Nth dropped message")
		debug          = flag.Bool("debug", env.Debug, "Run with simulated cameras")
		debugRate      = flag.Float64("debug-rate", env.DebugRate, "Simulated messages per camera per second")
	)
	flag.Parse()

	cfg := config.AppConfig{
		Cameras:           *cameras,
		Endpoints:         splitList(*endpoints),
		FrameSource:       *frameSource,
		SkeletonSource:    *skeletonSource,
		Codec:             *codecName,
		FrameWidth:        *frameWidth,
		FrameHeight:       *frameHeight,
		Scale:             *scale,
		LineThickness:     *lineThickness,
		LabelFrames:       *labelFrames,
		Window:            *window,
		WindowTitle:       *windowTitle,
		Port:              *port,
		Workers:           *workers,
		GatewayURL:        *gatewayURL,
		GatewayAPIVersion: *gatewayVersion,
		GatewayPoll:       *gatewayPoll,
		SamplingHz:        *samplingHz,
		ColorSpace:        *colorSpace,
		RawLogEnabled:     *rawLogEnabled,
		RawLogDir:         *rawLogDir,
		IngestLogEvery:    *ingestLogEvery,
		Debug:             *debug,
		DebugRate:         *debugRate,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	payloadCodec, err := codec.ByName(cfg.Codec)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailbox := display.NewMailbox()
	defer mailbox.Close()

	opts := viewer.Options{
		Cameras:       cfg.Cameras,
		FrameWidth:    cfg.FrameWidth,
		FrameHeight:   cfg.FrameHeight,
		Scale:         cfg.Scale,
		LineThickness: cfg.LineThickness,
	}
	if cfg.LabelFrames {
		opts.LabelSource = cfg.FrameSource
	}
	v, err := viewer.New(opts, payloadCodec, mailbox)
	if err != nil {
		log.Fatalf("failed to start viewer: %v", err)
	}
	grid := v.Grid()
	log.Printf("viewer: %d cameras in a %dx%d grid, %dx%d frames, scale %g, codec %s",
		cfg.Cameras, grid.Rows, grid.Cols, cfg.FrameWidth, cfg.FrameHeight, cfg.Scale, payloadCodec.Name())

	var (
		gatewayMu     sync.Mutex
		gatewayStatus []gateway.CameraStatus
	)
	if cfg.GatewayURL != "" {
		configurator := &gateway.Configurator{
			BaseURL:    cfg.GatewayURL,
			APIVersion: cfg.GatewayAPIVersion,
			Service:    cfg.FrameSource,
			Config:     cfg.CameraConfig(),
		}
		configurator.ConfigureAll(ctx, cfg.Cameras, nil)
		go gateway.Poll(ctx, cfg.GatewayURL, cfg.GatewayAPIVersion, cfg.FrameSource, cfg.Cameras, cfg.GatewayPoll, func(s []gateway.CameraStatus) {
			gatewayMu.Lock()
			gatewayStatus = s
			gatewayMu.Unlock()
		})
	}

	var messages <-chan types.Message
	source := "stream"
	if cfg.Debug {
		source = "simulator"
		messages = simulator.Stream(ctx, simulator.Options{
			Cameras:        cfg.Cameras,
			FrameSource:    cfg.FrameSource,
			SkeletonSource: cfg.SkeletonSource,
			Width:          cfg.FrameWidth,
			Height:         cfg.FrameHeight,
			Rate:           cfg.DebugRate,
			Codec:          payloadCodec,
		})
	} else {
		var recorder ingest.RawRecorder
		if cfg.RawLogEnabled {
			writer, err := output.NewRawLogWriter(cfg.RawLogDir, "raw_"+payloadCodec.Name())
			if err != nil {
				log.Fatalf("failed to start raw log: %v", err)
			}
			log.Printf("recording raw messages to %s", writer.Path())
			recorder = writer
			defer func() {
				if err := writer.Close(); err != nil {
					log.Printf("raw log close failed: %v", err)
				}
			}()
		}
		topics := ingest.Topics(cfg.FrameSource, cfg.SkeletonSource, cfg.Cameras)
		messages, err = ingest.Stream(ctx, cfg.Endpoints, topics, cfg.IngestLogEvery, recorder)
		if err != nil {
			log.Fatalf("failed to start ingest: %v", err)
		}
	}

	var m metrics
	workersDone := runWorkers(v, messages, cfg.Workers, cfg.IngestLogEvery, &m)

	uiMessages := make(chan any, 4)
	web := display.NewWebSurface(uiMessages)
	surfaces := displaySurfaces(cfg, web, func(title string) display.Surface {
		return display.NewWindowSurface(title)
	})

	statusFn := func() map[string]any {
		counters := v.Stats().Snapshot()
		counters["messages_handled_total"] = m.handled.Load()
		counters["messages_dropped_total"] = m.dropped.Load()
		counters["ingest_messages_total"] = ingest.MessagesTotal()
		counters["ingest_receive_failures_total"] = ingest.ReceiveFailures()
		counters["composites_published_total"] = mailbox.Published()
		counters["composites_skipped_total"] = mailbox.Dropped()

		gatewayMu.Lock()
		cams := append([]gateway.CameraStatus(nil), gatewayStatus...)
		gatewayMu.Unlock()
		return map[string]any{
			"source":  source,
			"metrics": counters,
			"cameras": v.CameraStatus(),
			"gateway": cams,
		}
	}
	configFn := func() map[string]any {
		return map[string]any{
			"grid":  map[string]int{"rows": grid.Rows, "cols": grid.Cols},
			"codec": payloadCodec.Name(),
		}
	}
	go func() {
		if cfg.Port != 0 {
			log.Printf("starting web UI at http://localhost:%d", cfg.Port)
		}
		if err := server.Run(ctx, cfg, uiMessages, statusFn, web.Latest, configFn); err != nil {
			log.Printf("web server failed: %v", err)
		}
	}()

	display.Run(ctx, mailbox, surfaces, display.DefaultIdle)

	log.Printf("shutting down")
	for _, surface := range surfaces {
		if err := surface.Close(); err != nil {
			log.Printf("display close failed: %v", err)
		}
	}
	if !awaitWorkers(workersDone, 5*time.Second) {
		// Handlers may still hold the frame stores; their Mats are left to process exit.
		log.Printf("workers did not stop in time, skipping frame store release")
		return
	}
	v.Close()
}

// displaySurfaces lists the outputs the display loop feeds. The web surface is
// only installed when the web server runs.
func displaySurfaces(cfg config.AppConfig, web display.Surface, newWindow func(title string) display.Surface) []display.Surface {
	var surfaces []display.Surface
	if cfg.Port != 0 {
		surfaces = append(surfaces, web)
	}
	if cfg.Window {
		surfaces = append(surfaces, newWindow(cfg.WindowTitle))
	}
	return surfaces
}

// awaitWorkers reports whether done closed within timeout.
func awaitWorkers(done <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// runWorkers shards messages by camera id so each camera's messages are
// handled in arrival order. The returned channel closes once every worker
// has drained its queue.
func runWorkers(v *viewer.Viewer, messages <-chan types.Message, workers int, logEvery int, m *metrics) <-chan struct{} {
	queues := make([]chan types.Message, workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan types.Message, 64)
		wg.Add(1)
		go func(queue <-chan types.Message) {
			defer wg.Done()
			for msg := range queue {
				if err := v.HandleMessage(msg); err != nil {
					if viewer.IsFatal(err) {
						log.Fatalf("display state corrupted: %v", err)
					}
					m.dropped.Add(1)
					ingest.LogEveryN(logEvery, "dropped %s: %v", msg.Topic, err)
					continue
				}
				m.handled.Add(1)
			}
		}(queues[i])
	}

	done := make(chan struct{})
	go func() {
		for msg := range messages {
			shard := 0
			if id, err := ingest.CameraID(msg.Topic); err == nil && id >= 0 {
				shard = id % workers
			}
			queues[shard] <- msg
		}
		for _, queue := range queues {
			close(queue)
		}
		wg.Wait()
		close(done)
	}()
	return done
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
