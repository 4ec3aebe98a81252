package dto

// Message types pushed to viewers.
const (
	MessageState = "state"
	MessageFrame = "frame"
)

// Control actions sent by viewers.
const (
	ActionPress   = "press"
	ActionRelease = "release"
)

// LabelView is the rendered state of one class control.
type LabelView struct {
	Class      int     `json:"class"`
	Name       string  `json:"name"`
	Text       string  `json:"text"`
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
	Emphasized bool    `json:"emphasized"`
}

// PageState mirrors the visibility of the page sections: the loading
// indicator, the main container, the info message and the video.
type PageState struct {
	Loading      bool   `json:"loading"`
	MainVisible  bool   `json:"main_visible"`
	InfoVisible  bool   `json:"info_visible"`
	Info         string `json:"info,omitempty"`
	VideoVisible bool   `json:"video_visible"`
}

// State is the full document a viewer renders.
type State struct {
	Type   string      `json:"type"`
	Page   PageState   `json:"page"`
	Labels []LabelView `json:"labels"`
	Armed  *int        `json:"armed"`
}

// FrameMessage carries a base64 JPEG preview.
type FrameMessage struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}

// ControlMessage is sent by a viewer when a class button is pressed or released.
type ControlMessage struct {
	Action string `json:"action"`
	Class  int    `json:"class"`
}
