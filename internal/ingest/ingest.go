package ingest

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"skeleton-viewer/internal/types"
)

const recvTimeout = 250 * time.Millisecond

// RawRecorder receives every inbound message before it is handed on.
type RawRecorder interface {
	Record(topic string, payload []byte) error
}

var (
	receiveFailures atomic.Uint64
	messagesTotal   atomic.Uint64
)

// Stream subscribes to topics on every endpoint and returns the inbound messages.
// Publications are expected as two-part ZeroMQ messages: [topic, payload].
func Stream(ctx context.Context, endpoints []string, topics []string, logEvery int, recorder RawRecorder) (<-chan types.Message, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no endpoints configured")
	}
	if logEvery < 1 {
		logEvery = 1
	}

	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}
	if err := socket.SetRcvtimeo(recvTimeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	for _, endpoint := range endpoints {
		if err := socket.Connect(endpoint); err != nil {
			_ = socket.Close()
			return nil, err
		}
	}
	for _, topic := range topics {
		if err := socket.SetSubscribe(topic); err != nil {
			_ = socket.Close()
			return nil, err
		}
	}
	log.Printf("subscribed to %d topics on %v", len(topics), endpoints)

	out := make(chan types.Message, 128)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			parts, err := socket.RecvMessageBytes(0)
			if err != nil {
				if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
					continue
				}
				receiveFailures.Add(1)
				LogEveryN(logEvery, "ingest recv error: %v", err)
				continue
			}

			msg, ok := splitMessage(parts)
			if !ok {
				receiveFailures.Add(1)
				LogEveryN(logEvery, "ingest dropped message with %d parts", len(parts))
				continue
			}
			messagesTotal.Add(1)

			if recorder != nil {
				if err := recorder.Record(msg.Topic, msg.Payload); err != nil {
					LogEveryN(logEvery, "raw log record failed: %v", err)
				}
			}

			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}()

	return out, nil
}

func splitMessage(parts [][]byte) (types.Message, bool) {
	if len(parts) != 2 || len(parts[0]) == 0 {
		return types.Message{}, false
	}
	return types.Message{
		Topic:    string(parts[0]),
		Payload:  parts[1],
		Received: time.Now(),
	}, true
}

// ReceiveFailures reports transport-level receive and framing failures.
func ReceiveFailures() uint64 {
	return receiveFailures.Load()
}

func MessagesTotal() uint64 {
	return messagesTotal.Load()
}

var logCounter atomic.Uint64

// LogEveryN logs one out of every n calls, shared across all callers.
func LogEveryN(n int, format string, args ...any) {
	if n < 1 {
		n = 1
	}
	if logCounter.Add(1)%uint64(n) == 0 {
		log.Printf(format, args...)
	}
}
