package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/internal/server/api"
	apierror "github.com/seatkit/seatkit/internal/server/api/error"
	"github.com/seatkit/seatkit/internal/server/seat"
	pseat "github.com/seatkit/seatkit/seat"
)

// SeatKeyboardsList returns a handler that lists keyboards on a seat.
func SeatKeyboardsList(m *seat.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		idStr, ok := req.Params["id"]
		if !ok {
			return apierror.ErrBadRequest("missing id parameter")
		}
		seatID, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid seatId: %v", err))
		}
		s := m.GetSeat(uint32(seatID))
		if s == nil {
			return apierror.ErrNotFound(fmt.Sprintf("seat %d not found", seatID))
		}
		metas := s.GetAllDeviceMetas()
		out := make([]apitypes.Keyboard, 0, len(metas))
		for _, dm := range metas {
			out = append(out, keyboardInfo(dm))
		}
		payload, err := json.Marshal(apitypes.KeyboardsListResponse{Keyboards: out})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(payload)
		return nil
	}
}

// keyboardInfo builds the wire representation of one attached keyboard.
func keyboardInfo(dm pseat.DeviceMeta) apitypes.Keyboard {
	kbd := dm.Dev.Keyboard()
	ri := kbd.RepeatInfo()
	layout := ""
	if km := kbd.Keymap(); km != nil {
		layout = km.Name()
	}
	return apitypes.Keyboard{
		SeatID:      dm.Meta.SeatID,
		DevID:       fmt.Sprintf("%d", dm.Meta.DevID),
		Type:        dm.Dev.Type(),
		Layout:      layout,
		RepeatRate:  ri.Rate,
		RepeatDelay: ri.Delay,
	}
}
