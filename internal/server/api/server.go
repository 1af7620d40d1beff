package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/seatkit/seatkit/device"
	"github.com/seatkit/seatkit/internal/server/api/auth"
	"github.com/seatkit/seatkit/internal/server/seat"
)

// Server implements a small TCP API for managing seat topology.
type Server struct {
	seats   *seat.Manager
	addr    string
	ln      net.Listener
	logger  *slog.Logger
	router  *Router
	config  ServerConfig
	authKey []byte
}

// New creates a new API server bound to a seat.Manager instance.
func New(m *seat.Manager, addr string, config ServerConfig, logger *slog.Logger) (*Server, error) {
	a := &Server{
		seats:  m,
		addr:   addr,
		logger: logger,
		config: config,
	}
	if config.Password != "" {
		key, err := auth.DeriveKey(config.Password)
		if err != nil {
			return nil, fmt.Errorf("derive api key: %w", err)
		}
		a.authKey = key
	}
	a.router = NewRouter()
	return a, nil
}

// Router returns the router used by the API server so callers can register handlers.
func (a *Server) Router() *Router { return a.router }

// Seats returns the underlying seat manager.
func (a *Server) Seats() *seat.Manager { return a.seats }

// Config returns the server configuration.
func (a *Server) Config() ServerConfig { return a.config }

// Start listens on the configured address and serves incoming API commands.
func (a *Server) Start() error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.logger.Info("API listening", "addr", a.addr)
	go a.serve()
	return nil
}

// Close stops the API server.
func (a *Server) Close() {
	if a.ln != nil {
		_ = a.ln.Close()
	}
}

func (a *Server) serve() {
	for {
		c, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				a.logger.Info("API server stopped")
				return
			}
			a.logger.Info("API accept error", "error", err)
			return
		}
		go a.handleConn(c)
	}
}

func (a *Server) writeError(w io.Writer, err error) {
	apiErr := WrapError(err)
	problemJSON, _ := json.Marshal(apiErr)
	fmt.Fprintf(w, "%s\n", string(problemJSON))
}

func (a *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

// authenticate runs the handshake when a password is configured and returns
// the connection (possibly wrapped in an encrypted session) plus a reader
// over it. Plaintext clients are rejected once a password is set.
func (a *Server) authenticate(conn net.Conn, r *bufio.Reader, logger *slog.Logger) (net.Conn, *bufio.Reader, error) {
	isHandshake, err := auth.IsAuthHandshake(r)
	if err != nil {
		return nil, nil, fmt.Errorf("peek handshake: %w", err)
	}

	if a.authKey == nil {
		if isHandshake {
			logger.Warn("client offered auth but no password is configured")
			return nil, nil, ErrBadRequest("server does not require authentication")
		}
		return conn, r, nil
	}

	if !isHandshake {
		return nil, nil, ErrUnauthorized("authentication required")
	}

	clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, conn, a.authKey, false)
	if err != nil {
		return nil, nil, err
	}

	sessionKey := auth.DeriveSessionKey(a.authKey, serverNonce, clientNonce)
	sc, err := auth.WrapConn(conn, sessionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("wrap connection: %w", err)
	}
	return sc, bufio.NewReader(sc), nil
}

func (a *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := a.logger.With("remote", conn.RemoteAddr().String())

	// Request/response exchanges must finish within the operation timeout.
	// Stream connections clear the deadline once routed.
	if a.config.ConnectionTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(a.config.ConnectionTimeout)); err != nil {
			connLogger.Error("set connection deadline", "error", err)
			return
		}
	}

	r := bufio.NewReader(conn)

	sconn, sr, err := a.authenticate(conn, r, connLogger)
	if err != nil {
		connLogger.Error("api auth failed", "error", err)
		a.writeError(conn, err)
		return
	}
	conn, r = sconn, sr
	w := io.Writer(conn)

	// Read until null terminator
	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("api incomplete request (no null terminator)")
		} else {
			connLogger.Error("read api data", "error", err)
		}
		return
	}
	// Remove null terminator
	reqData = strings.TrimSuffix(reqData, "\x00")

	if reqData == "" {
		connLogger.Error("api empty command")
		a.writeError(w, ErrBadRequest("empty request"))
		return
	}

	// Split on first whitespace character using regex \s
	wsRegex := regexp.MustCompile(`\s`)
	loc := wsRegex.FindStringIndex(reqData)

	var path, payload string
	if loc != nil {
		path = reqData[:loc[0]]
		payload = reqData[loc[1]:]
	} else {
		path = reqData
		payload = ""
	}

	if path == "" {
		connLogger.Error("api empty path")
		a.writeError(w, ErrBadRequest("empty path"))
		return
	}

	path = strings.ToLower(path)
	connLogger.Info("api cmd", "path", path)

	if h, params := a.router.Match(path); h != nil {
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("api handler error", "path", path, "error", err)
			a.writeError(w, err)
			return
		}
		connLogger.Debug("api handler success", "path", path)
		a.writeOK(w, res.JSON)
		return
	} else if sh, params := a.router.MatchStream(path); sh != nil {
		connLogger.Info("api stream begin", "path", path)
		// Streams stay open indefinitely.
		_ = conn.SetDeadline(time.Time{})
		a.handleStream(conn, sh, params, connLogger)
		connLogger.Info("api stream end", "path", path)
		return
	}
	connLogger.Error("api unknown path", "path", path)
	a.writeError(w, ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
}

func (a *Server) handleStream(conn net.Conn, sh StreamHandlerFunc, params map[string]string, logger *slog.Logger) {
	seatIDStr, ok := params["seatId"]
	if !ok {
		a.writeError(conn, ErrBadRequest("missing seatId parameter"))
		return
	}
	devIDStr, ok := params["keyboardid"]
	if !ok {
		a.writeError(conn, ErrBadRequest("missing keyboardid parameter"))
		return
	}

	seatID, err := strconv.ParseUint(seatIDStr, 10, 32)
	if err != nil {
		a.writeError(conn, ErrBadRequest(fmt.Sprintf("invalid seatId: %v", err)))
		return
	}
	s := a.seats.GetSeat(uint32(seatID))
	if s == nil {
		a.writeError(conn, ErrNotFound(fmt.Sprintf("seat %d not found", seatID)))
		return
	}
	var dev device.Device
	var devCtx context.Context
	metas := s.GetAllDeviceMetas()
	for _, meta := range metas {
		if fmt.Sprintf("%d", meta.Meta.DevID) == devIDStr {
			dev = meta.Dev
			devCtx = s.GetDeviceContext(dev)
			break
		}
	}
	if dev == nil || devCtx == nil {
		a.writeError(conn, ErrNotFound(fmt.Sprintf("keyboard %s not found on seat %d", devIDStr, seatID)))
		return
	}

	connTimer := device.GetConnTimer(devCtx)
	if connTimer != nil {
		connTimer.Stop()
	}

	// Stream handler takes ownership of connection
	if err := sh(conn, &dev, logger); err != nil {
		logger.Error("api stream handler error", "error", err)
	}

	connTimer = device.GetConnTimer(devCtx)
	if connTimer != nil {
		connTimer.Reset(a.config.DeviceHandlerConnectTimeout)
		go func() {
			select {
			case <-devCtx.Done():
				connTimer.Stop()
				return
			case <-connTimer.C:
				meta := device.GetMeta(devCtx)
				if meta != nil {
					deviceIDStr := fmt.Sprintf("%d", meta.DevID)
					if err := s.RemoveDeviceByID(deviceIDStr); err != nil {
						logger.Error("disconnect timeout: failed to remove keyboard", "seatID", seatID, "keyboardID", deviceIDStr, "error", err)
					} else {
						logger.Info("disconnect timeout: removed keyboard (no reconnection)", "seatID", seatID, "keyboardID", deviceIDStr)
					}
				}
			}
		}()
	}
}
