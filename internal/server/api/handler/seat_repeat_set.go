package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/internal/server/api"
	apierror "github.com/seatkit/seatkit/internal/server/api/error"
	"github.com/seatkit/seatkit/internal/server/seat"
)

// SeatRepeatSet returns a handler that sets a keyboard's repeat parameters.
func SeatRepeatSet(m *seat.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		dev, err := findKeyboard(m, req.Params)
		if err != nil {
			return err
		}
		if req.Payload == "" {
			return apierror.ErrBadRequest("missing payload")
		}
		var setReq apitypes.RepeatSetRequest
		if err := json.Unmarshal([]byte(req.Payload), &setReq); err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid JSON payload: %v", err))
		}
		if setReq.Rate < 0 || setReq.Delay < 0 {
			return apierror.ErrBadRequest("rate and delay must be non-negative")
		}

		kbd := dev.Keyboard()
		kbd.SetRepeatInfo(setReq.Rate, setReq.Delay)
		ri := kbd.RepeatInfo()

		out, err := json.Marshal(apitypes.RepeatSetResponse{Rate: ri.Rate, Delay: ri.Delay})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}
