package types

import "time"

// Message is one inbound publication as delivered by the transport.
type Message struct {
	Topic    string
	Payload  []byte
	Received time.Time
}

// PartType identifies a joint in a skeleton topology.
type PartType int32

const (
	PartUnknown PartType = iota
	PartHead
	PartNose
	PartNeck
	PartRightShoulder
	PartRightElbow
	PartRightWrist
	PartLeftShoulder
	PartLeftElbow
	PartLeftWrist
	PartRightHip
	PartRightKnee
	PartRightAnkle
	PartLeftHip
	PartLeftKnee
	PartLeftAnkle
	PartRightEye
	PartLeftEye
	PartRightEar
	PartLeftEar
	PartChest
	PartBackground
)

var partNames = map[PartType]string{
	PartUnknown:       "Unknown",
	PartHead:          "Head",
	PartNose:          "Nose",
	PartNeck:          "Neck",
	PartRightShoulder: "RShoulder",
	PartRightElbow:    "RElbow",
	PartRightWrist:    "RWrist",
	PartLeftShoulder:  "LShoulder",
	PartLeftElbow:     "LElbow",
	PartLeftWrist:     "LWrist",
	PartRightHip:      "RHip",
	PartRightKnee:     "RKnee",
	PartRightAnkle:    "RAnkle",
	PartLeftHip:       "LHip",
	PartLeftKnee:      "LKnee",
	PartLeftAnkle:     "LAnkle",
	PartRightEye:      "REye",
	PartLeftEye:       "LEye",
	PartRightEar:      "REar",
	PartLeftEar:       "LEar",
	PartChest:         "Chest",
	PartBackground:    "Background",
}

func (p PartType) String() string {
	if name, ok := partNames[p]; ok {
		return name
	}
	return "Unknown"
}

// BodyPart is a single detected joint. A part whose x+y+score is not positive
// was not detected; this also hides a genuine zero-confidence detection at the origin.
type BodyPart struct {
	Type  PartType `cbor:"type" msgpack:"type" json:"type"`
	X     float64  `cbor:"x" msgpack:"x" json:"x"`
	Y     float64  `cbor:"y" msgpack:"y" json:"y"`
	Score float64  `cbor:"score" msgpack:"score" json:"score"`
}

func (p BodyPart) Available() bool {
	return p.X+p.Y+p.Score > 0
}

type Link struct {
	Begin PartType `cbor:"begin" msgpack:"begin" json:"begin"`
	End   PartType `cbor:"end" msgpack:"end" json:"end"`
}

type Skeleton struct {
	Parts []BodyPart `cbor:"parts" msgpack:"parts" json:"parts"`
}

// SkeletonMessage carries every skeleton detected on one camera at one instant.
// Links is shared by all skeletons and its order fixes the color of each link.
type SkeletonMessage struct {
	Links     []Link     `cbor:"links" msgpack:"links" json:"links"`
	Skeletons []Skeleton `cbor:"skeletons" msgpack:"skeletons" json:"skeletons"`
}

// ImageMessage is a frame published by a camera gateway: either an encoded
// image (JPEG, PNG, ...) in Data or an undecoded raster in Raw.
type ImageMessage struct {
	Data       []byte     `cbor:"data,omitempty" msgpack:"data,omitempty" json:"data,omitempty"`
	Raw        *RawImage  `cbor:"raw,omitempty" msgpack:"raw,omitempty" json:"raw,omitempty"`
	ColorSpace ColorSpace `cbor:"color_space,omitempty" msgpack:"color_space,omitempty" json:"color_space,omitempty"`
}
