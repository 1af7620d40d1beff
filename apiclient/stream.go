package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/seatkit/seatkit/apitypes"
	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/device/virtkbd"
)

// KeyboardStream represents a bidirectional connection to a keyboard stream:
// binary input frames flow to the server, JSON state events flow back.
type KeyboardStream struct {
	conn   net.Conn
	SeatID uint32
	DevID  string
	closed bool

	readCancel context.CancelFunc
	readMu     sync.Mutex
	writeMu    sync.Mutex
}

// OpenStream connects to an existing keyboard's stream channel.
// The keyboard must already exist on the seat (use KeyboardAdd first).
func (c *Client) OpenStream(ctx context.Context, seatID uint32, devID string) (*KeyboardStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}

	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}

	streamPath := fmt.Sprintf("seat/%d/%s\x00", seatID, devID)
	if _, err := conn.Write([]byte(streamPath)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}

	ks := &KeyboardStream{
		conn:   conn,
		SeatID: seatID,
		DevID:  devID,
	}
	return ks, nil
}

// AddKeyboardAndConnect creates a keyboard on the specified seat and immediately connects to its stream.
// This is a convenience wrapper that combines KeyboardAdd + OpenStream in one call.
func (c *Client) AddKeyboardAndConnect(ctx context.Context, seatID uint32, kbdType string, o *device.CreateOptions) (*KeyboardStream, *apitypes.Keyboard, error) {
	resp, err := c.KeyboardAddCtx(ctx, seatID, kbdType, o)
	if err != nil {
		return nil, nil, err
	}

	stream, err := c.OpenStream(ctx, seatID, resp.DevID)
	if err != nil {
		return nil, resp, err
	}

	return stream, resp, nil
}

// SendKey reports a key press or release. When updateState is set the server
// feeds the key through its layout engine to derive modifiers and LEDs.
func (s *KeyboardStream) SendKey(timeMsec, keycode uint32, pressed, updateState bool) error {
	return s.write(virtkbd.EncodeKey(timeMsec, keycode, pressed, updateState))
}

// SendModifiers overrides the server-side modifier masks wholesale, for
// clients that resolve modifiers themselves.
func (s *KeyboardStream) SendModifiers(depressed, latched, locked, group uint32) error {
	return s.write(virtkbd.EncodeModifiers(depressed, latched, locked, group))
}

// SendRepeat sets the repeat rate (per second) and delay (msec).
func (s *KeyboardStream) SendRepeat(rate, delay int32) error {
	return s.write(virtkbd.EncodeRepeat(rate, delay))
}

func (s *KeyboardStream) write(frame []byte) error {
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(frame)
	return err
}

// StartReading begins asynchronously decoding keyboard events from the
// stream in a background goroutine. The returned channels are closed when
// the stream ends; the error channel carries the terminal error (io.EOF on
// server-side close).
func (s *KeyboardStream) StartReading(ctx context.Context, chSize int) (<-chan apitypes.KeyboardEvent, <-chan error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.readCancel != nil {
		panic("StartReading called twice on the same stream")
	}

	evCh := make(chan apitypes.KeyboardEvent, chSize)
	errCh := make(chan error, 1)

	readCtx, cancel := context.WithCancel(ctx)
	s.readCancel = cancel

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer cancel()

		dec := json.NewDecoder(bufio.NewReader(s.conn))
		for {
			select {
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			default:
			}

			var ev apitypes.KeyboardEvent
			if err := dec.Decode(&ev); err != nil {
				errCh <- err
				return
			}

			select {
			case evCh <- ev:
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			}
		}
	}()

	return evCh, errCh
}

// SetReadDeadline sets the read deadline for the underlying connection.
func (s *KeyboardStream) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline for the underlying connection.
func (s *KeyboardStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Close closes the stream connection and stops any background reading.
func (s *KeyboardStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.readMu.Lock()
	if s.readCancel != nil {
		s.readCancel()
	}
	s.readMu.Unlock()

	return s.conn.Close()
}
