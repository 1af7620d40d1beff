package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/internal/server/seat"
)

// SeatKeyboardRemove returns a handler that removes a keyboard by device number.
func SeatKeyboardRemove(m *seat.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		idStr, ok := req.Params["id"]
		if !ok {
			return api.ErrBadRequest("missing id parameter")
		}
		seatID, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return api.ErrBadRequest(fmt.Sprintf("invalid seatId: %v", err))
		}
		if req.Payload == "" {
			return api.ErrBadRequest("missing keyboard number")
		}
		deviceID := req.Payload

		s := m.GetSeat(uint32(seatID))
		if s == nil {
			return api.ErrNotFound(fmt.Sprintf("seat %d not found", seatID))
		}
		if err := s.RemoveDeviceByID(deviceID); err != nil {
			return api.ErrNotFound(fmt.Sprintf("keyboard %s not found on seat %d", deviceID, seatID))
		}

		j, err := json.Marshal(apitypes.KeyboardRemoveResponse{SeatID: uint32(seatID), DevID: deviceID})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(j)
		return nil
	}
}
