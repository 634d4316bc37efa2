package types

// UIComposite is pushed to websocket clients on every display update.
type UIComposite struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Image  string `json:"image"`
}
