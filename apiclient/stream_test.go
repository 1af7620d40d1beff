package apiclient_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/seatkit/seatkit/apiclient"
	"github.com/seatkit/seatkit/apitypes"
	_ "github.com/seatkit/seatkit/device/virtkbd"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/internal/server/api/handler"
	smgr "github.com/seatkit/seatkit/internal/server/seat"
	htesting "github.com/seatkit/seatkit/internal/testing"
	"github.com/seatkit/seatkit/seat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStream_NotSupportedWithMockTransport(t *testing.T) {
	c := testClient(map[string]string{}, nil)
	_, err := c.OpenStream(context.Background(), 1, "1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not supported with mock transport")
}

func TestAddKeyboardAndConnect(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(responses map[string]string) error
		wantKeyboard  *apitypes.Keyboard
		wantErrSubstr string
	}{
		{
			name: "success parse then stream error",
			setup: func(responses map[string]string) error {
				responses["seat/{id}/add"] = `{"seatId":42,"devId":"7","type":"virtkbd","layout":"us","repeatRate":25,"repeatDelay":600}`
				return nil
			},
			wantKeyboard:  &apitypes.Keyboard{SeatID: 42, DevID: "7", Type: "virtkbd", Layout: "us", RepeatRate: 25, RepeatDelay: 600},
			wantErrSubstr: "not supported with mock transport",
		},
		{
			name:          "transport dial error",
			setup:         func(responses map[string]string) error { return errors.New("dial fail") },
			wantErrSubstr: "dial fail",
		},
		{
			name:          "blank response error",
			setup:         func(responses map[string]string) error { return nil }, // no key => blank
			wantErrSubstr: "empty response",
		},
		{
			name: "api error response",
			setup: func(responses map[string]string) error {
				responses["seat/{id}/add"] = `{"status":404,"title":"Not Found","detail":"seat 42 not found"}`
				return nil
			},
			wantErrSubstr: "seat 42 not found",
		},
		{
			name: "strict JSON decode error (extra field)",
			setup: func(responses map[string]string) error {
				responses["seat/{id}/add"] = `{"seatId":42,"devId":"7","type":"virtkbd","repeatRate":25,"repeatDelay":600,"extra":true}`
				return nil
			},
			wantErrSubstr: "decode:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := map[string]string{}
			errInject := error(nil)
			if e := tt.setup(responses); e != nil {
				errInject = e
			}
			c := testClient(responses, errInject)
			stream, resp, err := c.AddKeyboardAndConnect(context.Background(), 42, "virtkbd", nil)
			if tt.wantKeyboard != nil {
				assert.Nil(t, stream)
				require.NotNil(t, resp, "keyboard response should be parsed")
				assert.Equal(t, tt.wantKeyboard.DevID, resp.DevID)
				assert.Equal(t, tt.wantKeyboard.SeatID, resp.SeatID)
				assert.Equal(t, tt.wantKeyboard.Type, resp.Type)
				assert.Equal(t, tt.wantKeyboard.Layout, resp.Layout)
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrSubstr)
				return
			}
			assert.Nil(t, resp)
			assert.Nil(t, stream)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrSubstr)
		})
	}
}

func waitEvent(t *testing.T, evCh <-chan apitypes.KeyboardEvent) apitypes.KeyboardEvent {
	t.Helper()
	select {
	case ev, ok := <-evCh:
		require.True(t, ok, "event channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for keyboard event")
		return apitypes.KeyboardEvent{}
	}
}

func TestKeyboardStream_Operations(t *testing.T) {
	type operation func(t *testing.T, stream *apiclient.KeyboardStream)

	tests := []struct {
		name   string
		seatID uint32
		op     operation
	}{
		{
			name:   "read deadline timeout",
			seatID: 95201,
			op: func(t *testing.T, stream *apiclient.KeyboardStream) {
				// Force immediate timeout by setting deadline in the past.
				require.NoError(t, stream.SetReadDeadline(time.Now().Add(-10*time.Millisecond)))
				_, errCh := stream.StartReading(context.Background(), 4)
				select {
				case readErr := <-errCh:
					assert.Error(t, readErr)
					var ne net.Error
					if assert.ErrorAs(t, readErr, &ne) {
						assert.True(t, ne.Timeout(), "expected timeout error")
					}
				case <-time.After(2 * time.Second):
					t.Fatal("timed out waiting for read error")
				}
				_ = stream.Close()
			},
		},
		{
			name:   "closed stream write errors",
			seatID: 95202,
			op: func(t *testing.T, stream *apiclient.KeyboardStream) {
				require.NoError(t, stream.Close())
				kErr := stream.SendKey(0, 30, true, true)
				assert.Error(t, kErr)
				assert.Contains(t, kErr.Error(), "stream closed")
				mErr := stream.SendModifiers(0, 0, 0, 0)
				assert.Error(t, mErr)
				assert.Contains(t, mErr.Error(), "stream closed")
				assert.NoError(t, stream.Close())
			},
		},
		{
			name:   "event round trip",
			seatID: 95203,
			op: func(t *testing.T, stream *apiclient.KeyboardStream) {
				defer stream.Close()
				evCh, _ := stream.StartReading(context.Background(), 8)

				// Initial state announcement: keymap then repeat parameters.
				ev := waitEvent(t, evCh)
				require.Equal(t, apitypes.EventKeymap, ev.Event)
				require.NotNil(t, ev.Keymap)
				assert.Greater(t, ev.Keymap.Size, 0)

				ev = waitEvent(t, evCh)
				require.Equal(t, apitypes.EventRepeatInfo, ev.Event)
				require.NotNil(t, ev.RepeatInfo)
				assert.Equal(t, int32(25), ev.RepeatInfo.Rate)
				assert.Equal(t, int32(600), ev.RepeatInfo.Delay)

				require.NoError(t, stream.SendKey(5, 30, true, true))
				ev = waitEvent(t, evCh)
				require.Equal(t, apitypes.EventKey, ev.Event)
				require.NotNil(t, ev.Key)
				assert.Equal(t, uint32(30), ev.Key.Keycode)
				assert.True(t, ev.Key.Pressed)

				require.NoError(t, stream.SendRepeat(50, 300))
				ev = waitEvent(t, evCh)
				require.Equal(t, apitypes.EventRepeatInfo, ev.Event)
				require.NotNil(t, ev.RepeatInfo)
				assert.Equal(t, int32(50), ev.RepeatInfo.Rate)
				assert.Equal(t, int32(300), ev.RepeatInfo.Delay)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, m, done := htesting.StartAPIServer(t, func(r *api.Router, m *smgr.Manager, apiSrv *api.Server) {
				r.Register("seat/{id}/add", handler.SeatKeyboardAdd(m, apiSrv))
				r.RegisterStream("seat/{seatId}/{keyboardid}", api.DeviceStreamHandler())
			})
			defer done()

			s, err := seat.NewWithSeatId(tt.seatID)
			require.NoError(t, err)
			require.NoError(t, m.AddSeat(s))

			c := apiclient.New(addr)
			stream, kbResp, err := c.AddKeyboardAndConnect(context.Background(), tt.seatID, "virtkbd", nil)
			require.NoError(t, err)
			require.NotNil(t, kbResp)
			require.NotNil(t, stream)

			tt.op(t, stream)
		})
	}
}
