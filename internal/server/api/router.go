package api

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"github.com/seatkit/seatkit/device"
)

// Request contains route parameters and additional args from the command.
type Request struct {
	Ctx     context.Context
	Params  map[string]string
	Payload string
}

// Response holds the JSON string to return to the client.
type Response struct {
	JSON string
}

// HandlerFunc processes a request and populates the response.
// Returns an error on failure. The logger provided is a connection-scoped
// logger enriched with remote address metadata by the API server.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// StreamHandlerFunc handles long-lived TCP connections for bidirectional
// streaming. The handler takes ownership of the connection and should close
// it when done. Returning a non-nil error indicates a terminal failure; the
// server will log it.
type StreamHandlerFunc func(conn net.Conn, dev *device.Device, logger *slog.Logger) error

// Router implements simple path pattern matching with placeholders in {name}.
type Router struct {
	routes       []routeEntry[HandlerFunc]
	streamRoutes []routeEntry[StreamHandlerFunc]
}

type routeEntry[H any] struct {
	parts         []string
	originalParts []string
	handler       H
}

// NewRouter returns a new Router instance.
func NewRouter() *Router { return &Router{} }

// Register registers a handler for a path pattern like "seat/{id}/list".
func (r *Router) Register(pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, newRoute(pattern, handler))
}

// RegisterStream registers a StreamHandler for long-lived TCP connections.
func (r *Router) RegisterStream(pattern string, handler StreamHandlerFunc) {
	r.streamRoutes = append(r.streamRoutes, newRoute(pattern, handler))
}

// Match returns the HandlerFunc and params if the given path matches any
// registered pattern. Returns nil if none match.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	for _, rt := range r.routes {
		if params, ok := rt.match(path); ok {
			return rt.handler, params
		}
	}
	return nil, nil
}

// MatchStream returns the StreamHandler and params if the given path matches
// any registered stream pattern. Returns nil if none match.
func (r *Router) MatchStream(path string) (StreamHandlerFunc, map[string]string) {
	for _, rt := range r.streamRoutes {
		if params, ok := rt.match(path); ok {
			return rt.handler, params
		}
	}
	return nil, nil
}

func newRoute[H any](pattern string, handler H) routeEntry[H] {
	return routeEntry[H]{
		parts:         strings.Split(strings.ToLower(pattern), "/"),
		originalParts: strings.Split(pattern, "/"),
		handler:       handler,
	}
}

func (rt routeEntry[H]) match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.ToLower(path), "/")
	if len(rt.parts) != len(parts) {
		return nil, false
	}
	params := map[string]string{}
	for i := range parts {
		if strings.HasPrefix(rt.parts[i], "{") && strings.HasSuffix(rt.parts[i], "}") {
			name := rt.originalParts[i][1 : len(rt.originalParts[i])-1]
			params[name] = parts[i]
			continue
		}
		if rt.parts[i] != parts[i] {
			return nil, false
		}
	}
	return params, true
}
