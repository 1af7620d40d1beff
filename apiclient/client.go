package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/device"
)

// Client provides a high-level interface to the seatkit API, handling request
// formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the seatkit API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the seatkit server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	const path = "ping"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// SeatCreate creates a new seat with the specified seat number.
// Returns the created seat ID or an error if the seat number is already allocated.
func (c *Client) SeatCreate(seatID uint32) (*apitypes.SeatCreateResponse, error) {
	return c.SeatCreateCtx(context.Background(), seatID)
}

func (c *Client) SeatCreateCtx(ctx context.Context, seatID uint32) (*apitypes.SeatCreateResponse, error) {
	const path = "seat/create"
	raw, err := c.transport.DoCtx(ctx, path, fmt.Sprintf("%d", seatID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SeatCreateResponse](raw)
}

// SeatRemove removes an existing seat and all keyboards attached to it.
// Returns the removed seat ID or an error if the seat does not exist.
func (c *Client) SeatRemove(seatID uint32) (*apitypes.SeatRemoveResponse, error) {
	return c.SeatRemoveCtx(context.Background(), seatID)
}

func (c *Client) SeatRemoveCtx(ctx context.Context, seatID uint32) (*apitypes.SeatRemoveResponse, error) {
	const path = "seat/remove"
	raw, err := c.transport.DoCtx(ctx, path, fmt.Sprintf("%d", seatID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SeatRemoveResponse](raw)
}

// SeatList retrieves a list of all active seat numbers.
func (c *Client) SeatList() (*apitypes.SeatListResponse, error) {
	return c.SeatListCtx(context.Background())
}

func (c *Client) SeatListCtx(ctx context.Context) (*apitypes.SeatListResponse, error) {
	const path = "seat/list"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SeatListResponse](raw)
}

// KeyboardAdd adds a new keyboard of the specified type to the given seat.
// The kbdType parameter specifies the backend (e.g., "virtkbd").
// Returns the assigned keyboard description or an error if the seat does not
// exist or the type is unknown.
func (c *Client) KeyboardAdd(seatID uint32, kbdType string, o *device.CreateOptions) (*apitypes.Keyboard, error) {
	return c.KeyboardAddCtx(context.Background(), seatID, kbdType, o)
}

func (c *Client) KeyboardAddCtx(ctx context.Context, seatID uint32, kbdType string, o *device.CreateOptions) (*apitypes.Keyboard, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", seatID)}
	const path = "seat/{id}/add"

	if o == nil {
		o = &device.CreateOptions{}
	}
	req := apitypes.KeyboardCreateRequest{
		Type:   &kbdType,
		Layout: o.Layout,
		Path:   o.Path,
	}
	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal keyboard create request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, path, string(payloadBytes), pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.Keyboard](raw)
}

// KeyboardRemove removes a keyboard from the specified seat by its device ID.
// The devID parameter is the keyboard number (e.g., "1") on the given seat.
// Active stream connections to the keyboard will be closed.
// Returns the removed keyboard's seat and device ID or an error if not found.
func (c *Client) KeyboardRemove(seatID uint32, devID string) (*apitypes.KeyboardRemoveResponse, error) {
	return c.KeyboardRemoveCtx(context.Background(), seatID, devID)
}

func (c *Client) KeyboardRemoveCtx(ctx context.Context, seatID uint32, devID string) (*apitypes.KeyboardRemoveResponse, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", seatID)}
	const path = "seat/{id}/remove"
	raw, err := c.transport.DoCtx(ctx, path, devID, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.KeyboardRemoveResponse](raw)
}

// KeyboardsList retrieves a list of all keyboards attached to the specified seat.
// Each entry includes seat ID, device ID, backend type, layout and repeat parameters.
func (c *Client) KeyboardsList(seatID uint32) (*apitypes.KeyboardsListResponse, error) {
	return c.KeyboardsListCtx(context.Background(), seatID)
}

func (c *Client) KeyboardsListCtx(ctx context.Context, seatID uint32) (*apitypes.KeyboardsListResponse, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", seatID)}
	const path = "seat/{id}/list"
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.KeyboardsListResponse](raw)
}

// KeymapSet binds a new layout, given as YAML, to a keyboard.
// Returns the compiled layout name and serialization or an error if the
// layout does not compile.
func (c *Client) KeymapSet(seatID uint32, devID string, layoutYAML string) (*apitypes.KeymapSetResponse, error) {
	return c.KeymapSetCtx(context.Background(), seatID, devID, layoutYAML)
}

func (c *Client) KeymapSetCtx(ctx context.Context, seatID uint32, devID string, layoutYAML string) (*apitypes.KeymapSetResponse, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", seatID), "kid": devID}
	const path = "seat/{id}/keyboard/{kid}/keymap"
	raw, err := c.transport.DoCtx(ctx, path, layoutYAML, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.KeymapSetResponse](raw)
}

// RepeatSet sets a keyboard's key repeat rate (per second) and delay (msec).
func (c *Client) RepeatSet(seatID uint32, devID string, rate, delay int32) (*apitypes.RepeatSetResponse, error) {
	return c.RepeatSetCtx(context.Background(), seatID, devID, rate, delay)
}

func (c *Client) RepeatSetCtx(ctx context.Context, seatID uint32, devID string, rate, delay int32) (*apitypes.RepeatSetResponse, error) {
	pathParams := map[string]string{"id": fmt.Sprintf("%d", seatID), "kid": devID}
	const path = "seat/{id}/keyboard/{kid}/repeat"
	raw, err := c.transport.DoCtx(ctx, path, apitypes.RepeatSetRequest{Rate: rate, Delay: delay}, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.RepeatSetResponse](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
