package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"skeleton-viewer/internal/codec"
	"skeleton-viewer/internal/ingest"
	"skeleton-viewer/internal/output"
	"skeleton-viewer/internal/types"
)

func main() {
	var (
		path      = flag.String("path", "", "Path to rawlog .bin file")
		limit     = flag.Int("limit", 1, "Number of records to dump (0 dumps all)")
		codecName = flag.String("codec", "cbor", "Payload codec (cbor, msgpack)")
		topic     = flag.String("topic", "", "Only dump records with this topic")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}
	payloadCodec, err := codec.ByName(*codecName)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open rawlog: %v", err)
	}
	defer f.Close()

	reader, err := output.NewRawLogReader(f)
	if err != nil {
		log.Fatalf("open rawlog: %v", err)
	}

	count := 0
	for index := 0; ; index++ {
		if *limit > 0 && count >= *limit {
			return
		}
		rec, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			log.Fatalf("record %d: %v", index, err)
		}
		if *topic != "" && rec.Topic != *topic {
			continue
		}
		count++

		log.Printf("record %d topic=%s timestamp=%s size=%d", index, rec.Topic, rec.Time.Format(time.RFC3339Nano), len(rec.Payload))
		if summary := summarize(payloadCodec, rec); summary != "" {
			fmt.Println(summary)
		}

		var decoded any
		if err := payloadCodec.Unmarshal(rec.Payload, &decoded); err != nil {
			log.Printf("record %d: %s decode error: %v", index, payloadCodec.Name(), err)
			continue
		}
		pretty, err := json.MarshalIndent(output.NormalizeJSONValue(decoded), "", "  ")
		if err != nil {
			log.Printf("record %d: JSON encode error: %v", index, err)
			continue
		}
		fmt.Println(string(pretty))
	}
}

// summarize describes frame and skeleton payloads in one line.
func summarize(c codec.Codec, rec output.Record) string {
	id, kind, err := ingest.ParseTopic(rec.Topic)
	if err != nil {
		return ""
	}
	switch kind {
	case ingest.KindFrame:
		var msg types.ImageMessage
		if err := c.Unmarshal(rec.Payload, &msg); err != nil {
			return ""
		}
		return fmt.Sprintf("camera %d frame: %d encoded bytes, color space %q", id, len(msg.Data), msg.ColorSpace)
	case ingest.KindSkeletons:
		var msg types.SkeletonMessage
		if err := c.Unmarshal(rec.Payload, &msg); err != nil {
			return ""
		}
		parts := 0
		for _, sk := range msg.Skeletons {
			for _, p := range sk.Parts {
				if p.Available() {
					parts++
				}
			}
		}
		return fmt.Sprintf("camera %d skeletons: %d skeletons, %d links, %d available parts", id, len(msg.Skeletons), len(msg.Links), parts)
	}
	return ""
}
