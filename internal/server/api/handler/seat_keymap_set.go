package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/internal/server/api"
	apierror "github.com/seatkit/seatkit/internal/server/api/error"
	"github.com/seatkit/seatkit/internal/server/seat"
	"github.com/seatkit/seatkit/xkb"
)

// SeatKeymapSet returns a handler that binds a new layout to a keyboard.
// The payload is a YAML layout description; the compiled keymap is shared
// through the manager's cache.
func SeatKeymapSet(m *seat.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		dev, err := findKeyboard(m, req.Params)
		if err != nil {
			return err
		}
		if req.Payload == "" {
			return apierror.ErrBadRequest("missing layout payload")
		}

		layout, err := xkb.ParseLayout([]byte(req.Payload))
		if err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid layout: %v", err))
		}
		km, err := m.Keymaps().Compile(layout)
		if err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("failed to compile layout: %v", err))
		}

		kbd := dev.Keyboard()
		kbd.SetKeymap(km)
		km.Unref()

		if kbd.Keymap() == nil {
			return apierror.ErrInternal("keymap could not be bound")
		}

		out, err := json.Marshal(apitypes.KeymapSetResponse{
			Layout:     layout.Name,
			Serialized: kbd.KeymapString(),
			Size:       kbd.KeymapSize(),
		})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}

// findKeyboard resolves the {id}/{kid} route parameters to an attached
// keyboard device.
func findKeyboard(m *seat.Manager, params map[string]string) (device.Device, error) {
	idStr, ok := params["id"]
	if !ok {
		return nil, apierror.ErrBadRequest("missing id parameter")
	}
	seatID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return nil, apierror.ErrBadRequest(fmt.Sprintf("invalid seatId: %v", err))
	}
	kidStr, ok := params["kid"]
	if !ok {
		return nil, apierror.ErrBadRequest("missing kid parameter")
	}
	s := m.GetSeat(uint32(seatID))
	if s == nil {
		return nil, apierror.ErrNotFound(fmt.Sprintf("seat %d not found", seatID))
	}
	for _, dm := range s.GetAllDeviceMetas() {
		if fmt.Sprintf("%d", dm.Meta.DevID) == kidStr {
			return dm.Dev, nil
		}
	}
	return nil, apierror.ErrNotFound(fmt.Sprintf("keyboard %s not found on seat %d", kidStr, seatID))
}
