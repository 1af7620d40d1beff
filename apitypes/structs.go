package apitypes

import "fmt"

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type SeatListResponse struct {
	Seats []uint32 `json:"seats"`
}

type SeatCreateResponse struct {
	SeatID uint32 `json:"seatId"`
}

type SeatRemoveResponse struct {
	SeatID uint32 `json:"seatId"`
}

// Keyboard describes one keyboard attached to a seat.
type Keyboard struct {
	SeatID      uint32 `json:"seatId"`
	DevID       string `json:"devId"`
	Type        string `json:"type"`
	Layout      string `json:"layout,omitempty"`
	RepeatRate  int32  `json:"repeatRate"`
	RepeatDelay int32  `json:"repeatDelay"`
}

type KeyboardsListResponse struct {
	Keyboards []Keyboard `json:"keyboards"`
}

type KeyboardRemoveResponse struct {
	SeatID uint32 `json:"seatId"`
	DevID  string `json:"devId"`
}

type KeyboardCreateRequest struct {
	Type *string `json:"type"`
	// Layout is an optional YAML layout description bound at creation.
	Layout *string `json:"layout,omitempty"`
	// Path is the device node for hardware-backed device kinds.
	Path *string `json:"path,omitempty"`
}

type KeymapSetResponse struct {
	Layout     string `json:"layout"`
	Serialized string `json:"serialized"`
	Size       int    `json:"size"`
}

type RepeatSetRequest struct {
	Rate  int32 `json:"rate"`
	Delay int32 `json:"delay"`
}

type RepeatSetResponse struct {
	Rate  int32 `json:"rate"`
	Delay int32 `json:"delay"`
}

// -- keyboard event stream DTOs (server -> client JSON lines)

const (
	EventKey        = "key"
	EventModifiers  = "modifiers"
	EventKeymap     = "keymap"
	EventRepeatInfo = "repeat_info"
	EventLEDs       = "leds"
	EventDestroy    = "destroy"
)

// KeyboardEvent is one event on a keyboard stream. Exactly one of the
// payload fields matching Event is set.
type KeyboardEvent struct {
	Event      string          `json:"event"`
	Key        *KeyEventBody   `json:"key,omitempty"`
	Modifiers  *ModifiersBody  `json:"modifiers,omitempty"`
	Keymap     *KeymapBody     `json:"keymap,omitempty"`
	RepeatInfo *RepeatInfoBody `json:"repeatInfo,omitempty"`
	LEDs       *uint32         `json:"leds,omitempty"`
}

type KeyEventBody struct {
	TimeMsec uint32 `json:"timeMsec"`
	Keycode  uint32 `json:"keycode"`
	Pressed  bool   `json:"pressed"`
}

type ModifiersBody struct {
	Depressed uint32 `json:"depressed"`
	Latched   uint32 `json:"latched"`
	Locked    uint32 `json:"locked"`
	Group     uint32 `json:"group"`
	// Effective is the composed modifier mask over the fixed enumeration.
	Effective uint32 `json:"effective"`
}

type KeymapBody struct {
	Serialized string `json:"serialized"`
	Size       int    `json:"size"`
}

type RepeatInfoBody struct {
	Rate  int32 `json:"rate"`
	Delay int32 `json:"delay"`
}
