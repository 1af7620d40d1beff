package api_test

import (
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/internal/server/api"
)

func TestRouterMatch(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		path       string
		wantMatch  bool
		wantParams map[string]string
	}{
		{
			name:      "exact match",
			pattern:   "seat/list",
			path:      "seat/list",
			wantMatch: true,
		},
		{
			name:      "case insensitive",
			pattern:   "seat/list",
			path:      "SEAT/LIST",
			wantMatch: true,
		},
		{
			name:       "single placeholder",
			pattern:    "seat/{id}/list",
			path:       "seat/42/list",
			wantMatch:  true,
			wantParams: map[string]string{"id": "42"},
		},
		{
			name:       "multiple placeholders",
			pattern:    "seat/{id}/keyboard/{kid}/keymap",
			path:       "seat/3/keyboard/7/keymap",
			wantMatch:  true,
			wantParams: map[string]string{"id": "3", "kid": "7"},
		},
		{
			name:      "length mismatch",
			pattern:   "seat/{id}/list",
			path:      "seat/42",
			wantMatch: false,
		},
		{
			name:      "literal mismatch",
			pattern:   "seat/{id}/list",
			path:      "seat/42/remove",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := api.NewRouter()
			r.Register(tt.pattern, func(req *api.Request, res *api.Response, logger *slog.Logger) error {
				return nil
			})

			h, params := r.Match(tt.path)
			if !tt.wantMatch {
				assert.Nil(t, h)
				return
			}
			assert.NotNil(t, h)
			if tt.wantParams != nil {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestRouterStreamRoutesAreSeparate(t *testing.T) {
	r := api.NewRouter()
	r.Register("seat/list", func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		return nil
	})
	r.RegisterStream("seat/{seatId}/{keyboardid}", func(conn net.Conn, dev *device.Device, logger *slog.Logger) error {
		return nil
	})

	h, _ := r.Match("seat/5/1")
	assert.Nil(t, h, "command match must not see stream routes")

	sh, params := r.MatchStream("seat/5/1")
	assert.NotNil(t, sh)
	assert.Equal(t, map[string]string{"seatId": "5", "keyboardid": "1"}, params)

	sh, _ = r.MatchStream("seat/list")
	assert.Nil(t, sh, "stream match must not see command routes")
}
