package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RawLogMagic opens every raw log file. Each record that follows is
// unix-nanos(8) topic-len(2) payload-len(4), little endian, then topic and payload.
const RawLogMagic = "SKVRAW01"

const recordHeaderSize = 14

var ErrBadMagic = errors.New("not a raw log")

type RawLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

func NewRawLogWriter(outputDir string, prefix string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(RawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RawLogWriter{
		f:    f,
		w:    w,
		path: filename,
	}, nil
}

func (r *RawLogWriter) Path() string {
	return r.path
}

func (r *RawLogWriter) Record(topic string, payload []byte) error {
	if err := checkRecordSizes(len(topic), len(payload)); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint16(header[8:10], uint16(len(topic)))
	binary.LittleEndian.PutUint32(header[10:14], uint32(len(payload)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.WriteString(topic); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

// checkRecordSizes rejects lengths that do not fit the record header fields.
func checkRecordSizes(topicLen, payloadLen int) error {
	if topicLen > math.MaxUint16 {
		return fmt.Errorf("topic too long: %d bytes", topicLen)
	}
	if uint64(payloadLen) > math.MaxUint32 {
		return fmt.Errorf("payload too long: %d bytes", payloadLen)
	}
	return nil
}

// Record is one logged transport message.
type Record struct {
	Time    time.Time
	Topic   string
	Payload []byte
}

type RawLogReader struct {
	r *bufio.Reader
}

// NewRawLogReader checks the file magic and positions r at the first record.
func NewRawLogReader(r io.Reader) (*RawLogReader, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(RawLogMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != RawLogMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, string(magic))
	}
	return &RawLogReader{r: br}, nil
}

// Next returns io.EOF after the last complete record. A truncated record is
// reported as io.ErrUnexpectedEOF.
func (r *RawLogReader) Next() (Record, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		return Record{}, err
	}
	ts := int64(binary.LittleEndian.Uint64(header[:8]))
	topicLen := binary.LittleEndian.Uint16(header[8:10])
	size := binary.LittleEndian.Uint32(header[10:14])

	buf := make([]byte, int(topicLen)+int(size))
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	return Record{
		Time:    time.Unix(0, ts),
		Topic:   string(buf[:topicLen]),
		Payload: buf[topicLen:],
	}, nil
}
