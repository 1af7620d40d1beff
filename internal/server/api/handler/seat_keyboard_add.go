package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/internal/server/api"
	apierror "github.com/seatkit/seatkit/internal/server/api/error"
	"github.com/seatkit/seatkit/internal/server/seat"
	pseat "github.com/seatkit/seatkit/seat"
)

// SeatKeyboardAdd returns a handler to add keyboards to a seat.
func SeatKeyboardAdd(m *seat.Manager, apiSrv *api.Server) api.HandlerFunc {
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
		if req.Payload == "" {
			return apierror.ErrBadRequest("missing payload")
		}
		var createReq apitypes.KeyboardCreateRequest
		err = json.Unmarshal([]byte(req.Payload), &createReq)
		if err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid JSON payload: %v", err))
		}
		if createReq.Type == nil {
			return apierror.ErrBadRequest("missing keyboard type")
		}

		name := strings.ToLower(*createReq.Type)

		reg := api.GetRegistration(name)
		if reg == nil {
			return apierror.ErrBadRequest(fmt.Sprintf("unknown keyboard type: %s", name))
		}

		opts := device.CreateOptions{
			Layout: createReq.Layout,
			Path:   createReq.Path,
		}

		dev, err := reg.CreateDevice(&opts, logger)
		if err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("failed to create keyboard: %v", err))
		}

		// Backends that come up without a keymap get the server default so
		// every attached keyboard has an authoritative layout.
		if dev.Keyboard().Keymap() == nil {
			km, err := m.DefaultKeymap()
			if err != nil {
				dev.Keyboard().Destroy()
				return apierror.ErrInternal(fmt.Sprintf("failed to compile default layout: %v", err))
			}
			dev.Keyboard().SetKeymap(km)
			km.Unref()
		}

		devCtx, err := s.Add(dev)
		if err != nil {
			dev.Keyboard().Destroy()
			return apierror.ErrInternal(fmt.Sprintf("failed to add keyboard to seat: %v", err))
		}

		meta := device.GetMeta(devCtx)
		if meta == nil {
			return apierror.ErrInternal("failed to get keyboard metadata from context")
		}

		connTimer := device.GetConnTimer(devCtx)
		if connTimer != nil {
			connTimer.Reset(apiSrv.Config().DeviceHandlerConnectTimeout)
		}
		go func() {
			select {
			case <-devCtx.Done():
				connTimer.Stop()
				return
			case <-connTimer.C:
				deviceIDStr := fmt.Sprintf("%d", meta.DevID)
				if err := m.RemoveKeyboardByID(uint32(seatID), deviceIDStr); err != nil {
					logger.Error("timeout: failed to remove keyboard", "seatID", seatID, "keyboardID", deviceIDStr, "error", err)
				} else {
					logger.Info("timeout: removed keyboard (no connection)", "seatID", seatID, "keyboardID", deviceIDStr)
				}
			}
		}()

		payload, err := json.Marshal(keyboardInfo(pseat.DeviceMeta{Dev: dev, Meta: *meta}))
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}

		res.JSON = string(payload)
		return nil
	}
}
