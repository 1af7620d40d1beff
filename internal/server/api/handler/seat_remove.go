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
)

// SeatRemove returns a handler that removes a seat.
func SeatRemove(m *seat.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if req.Payload == "" {
			return apierror.ErrBadRequest("missing seatId")
		}
		seatID, err := strconv.ParseUint(req.Payload, 10, 32)
		if err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid seatId: %v", err))
		}
		if err := m.RemoveSeat(uint32(seatID)); err != nil {
			return apierror.ErrNotFound(fmt.Sprintf("seat %d not found", seatID))
		}
		out, err := json.Marshal(apitypes.SeatRemoveResponse{SeatID: uint32(seatID)})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
