package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/internal/server/api"
	smgr "github.com/seatkit/seatkit/internal/server/seat"
	"github.com/seatkit/seatkit/seat"
)

// SeatCreate returns a handler that creates a new seat.
// Error logging is centralized in the API server; this handler only returns errors.
func SeatCreate(m *smgr.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if req.Payload != "" {
			seatId, err := strconv.ParseUint(req.Payload, 10, 32)
			if err != nil {
				return api.ErrBadRequest(fmt.Sprintf("invalid seatId: %v", err))
			}
			s, err := seat.NewWithSeatId(uint32(seatId))
			if err != nil {
				return api.ErrBadRequest(fmt.Sprintf("invalid seatId: %v", err))
			}
			if err := m.AddSeat(s); err != nil {
				return api.ErrConflict(fmt.Sprintf("seat %d already exists", seatId))
			}
			out, err := json.Marshal(apitypes.SeatCreateResponse{SeatID: s.SeatID()})
			if err != nil {
				return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
			}
			res.JSON = string(out)
			return nil
		}

		s := seat.New()
		if err := m.AddSeat(s); err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to add seat: %v", err))
		}
		out, err := json.Marshal(apitypes.SeatCreateResponse{SeatID: s.SeatID()})
		if err != nil {
			return api.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
