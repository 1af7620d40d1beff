package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/internal/server/api"
)

// Ping returns a handler that reports the server identity and version.
func Ping(version string) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		b, err := json.Marshal(apitypes.PingResponse{Server: "seatkit", Version: version})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
