package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	KindFrame     = "Frame"
	KindSkeletons = "Skeletons"
)

var ErrMalformedRoutingKey = errors.New("malformed routing key")

// ParseTopic splits a routing key such as "CameraGateway.2.Frame" into the camera
// id (second-to-last segment) and the message kind (last segment).
func ParseTopic(topic string) (int, string, error) {
	segments := strings.Split(topic, ".")
	if len(segments) < 2 {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedRoutingKey, topic)
	}
	id, err := strconv.Atoi(segments[len(segments)-2])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedRoutingKey, topic)
	}
	return id, segments[len(segments)-1], nil
}

func CameraID(topic string) (int, error) {
	id, _, err := ParseTopic(topic)
	return id, err
}

// Topics lists the frame and skeleton topics for cameras [0, cameras).
func Topics(frameSource, skeletonSource string, cameras int) []string {
	topics := make([]string, 0, 2*cameras)
	for n := 0; n < cameras; n++ {
		topics = append(topics,
			fmt.Sprintf("%s.%d.%s", frameSource, n, KindFrame),
			fmt.Sprintf("%s.%d.%s", skeletonSource, n, KindSkeletons),
		)
	}
	return topics
}
