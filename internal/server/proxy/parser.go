package proxy

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/seatkit/seatkit/device/virtkbd"
	"github.com/seatkit/seatkit/internal/server/api/auth"
)

type parserMode int

const (
	modeStart parserMode = iota
	modeRequest
	modeFrames
	modeLines
	modeOpaque
)

// Parser decodes proxied traffic for structured logging. One parser handles
// one direction of one connection; it is purely observational and never
// alters the byte stream.
type Parser struct {
	logger *slog.Logger
	buf    bytes.Buffer
	mode   parserMode
}

func NewParser(logger *slog.Logger, clientToServer bool) *Parser {
	p := &Parser{logger: logger}
	if clientToServer {
		p.mode = modeStart
	} else {
		p.mode = modeLines
	}
	return p
}

// Parse processes incoming data and logs protocol information.
func (p *Parser) Parse(data []byte, clientToServer bool) {
	if p.mode == modeOpaque {
		return
	}
	p.buf.Write(data)

	for p.buf.Len() > 0 {
		switch p.mode {
		case modeStart:
			if !p.parseStart(clientToServer) {
				return
			}
		case modeRequest:
			if !p.parseRequestLine(clientToServer) {
				return
			}
		case modeFrames:
			if !p.parseFrame(clientToServer) {
				return
			}
		case modeLines:
			if !p.parseLine(clientToServer) {
				return
			}
		case modeOpaque:
			p.buf.Reset()
			return
		}
	}
}

// parseStart decides whether the connection opens with an encrypted
// handshake or a plaintext request line.
func (p *Parser) parseStart(clientToServer bool) bool {
	if p.buf.Len() < len(auth.HandshakeMagic) {
		return false
	}
	if string(p.buf.Bytes()[:len(auth.HandshakeMagic)]) == auth.HandshakeMagic {
		p.logger.Info("Protocol",
			"dir", dirString(clientToServer),
			"op", "HANDSHAKE")
		p.setOpaque()
		return false
	}
	p.mode = modeRequest
	return true
}

func (p *Parser) parseRequestLine(clientToServer bool) bool {
	idx := bytes.IndexByte(p.buf.Bytes(), 0)
	if idx == -1 {
		p.checkOverflow()
		return false
	}
	line := string(p.buf.Next(idx + 1)[:idx])

	path, payload, hasPayload := strings.Cut(line, " ")
	args := []any{
		"dir", dirString(clientToServer),
		"op", "REQUEST",
		"path", path,
	}
	if hasPayload {
		args = append(args, "payload_len", len(payload))
	}
	p.logger.Info("Protocol", args...)

	if isStreamPath(path) {
		p.mode = modeFrames
	} else {
		p.mode = modeOpaque
	}
	return true
}

func (p *Parser) parseFrame(clientToServer bool) bool {
	peek := p.buf.Bytes()

	switch peek[0] {
	case virtkbd.OpKey:
		if len(peek) < 11 {
			return false
		}
		p.logger.Info("Protocol",
			"dir", dirString(clientToServer),
			"op", "KEY",
			"time", binary.LittleEndian.Uint32(peek[1:5]),
			"keycode", binary.LittleEndian.Uint32(peek[5:9]),
			"pressed", peek[9] != 0,
			"update_state", peek[10]&virtkbd.KeyFlagUpdateState != 0)
		p.buf.Next(11)

	case virtkbd.OpModifiers:
		if len(peek) < 17 {
			return false
		}
		p.logger.Info("Protocol",
			"dir", dirString(clientToServer),
			"op", "MODIFIERS",
			"depressed", binary.LittleEndian.Uint32(peek[1:5]),
			"latched", binary.LittleEndian.Uint32(peek[5:9]),
			"locked", binary.LittleEndian.Uint32(peek[9:13]),
			"group", binary.LittleEndian.Uint32(peek[13:17]))
		p.buf.Next(17)

	case virtkbd.OpRepeat:
		if len(peek) < 9 {
			return false
		}
		p.logger.Info("Protocol",
			"dir", dirString(clientToServer),
			"op", "REPEAT",
			"rate", int32(binary.LittleEndian.Uint32(peek[1:5])),
			"delay", int32(binary.LittleEndian.Uint32(peek[5:9])))
		p.buf.Next(9)

	default:
		p.logger.Debug("Unknown frame opcode, disabling parsing",
			"dir", dirString(clientToServer),
			"opcode", peek[0])
		p.setOpaque()
		return false
	}
	return true
}

func (p *Parser) parseLine(clientToServer bool) bool {
	peek := p.buf.Bytes()

	// An encrypted session answers the handshake before any JSON.
	if peek[0] != '{' {
		if len(peek) < len(auth.HandshakeOKPrefix) {
			return false
		}
		if string(peek[:len(auth.HandshakeOKPrefix)]) == auth.HandshakeOKPrefix {
			p.logger.Info("Protocol",
				"dir", dirString(clientToServer),
				"op", "HANDSHAKE_OK")
		}
		p.setOpaque()
		return false
	}

	idx := bytes.IndexByte(peek, '\n')
	if idx == -1 {
		p.checkOverflow()
		return false
	}
	line := p.buf.Next(idx + 1)[:idx]

	args := []any{
		"dir", dirString(clientToServer),
		"op", "RESPONSE",
		"len", len(line),
	}
	var typed struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(line, &typed); err == nil && typed.Event != "" {
		args = append(args, "event", typed.Event)
	}
	p.logger.Info("Protocol", args...)
	return true
}

func (p *Parser) setOpaque() {
	p.mode = modeOpaque
	p.buf.Reset()
}

func (p *Parser) checkOverflow() {
	if p.buf.Len() > 64*1024 {
		p.logger.Warn("Parser buffer overflow, resetting")
		p.setOpaque()
	}
}

// isStreamPath reports whether a request path opens a device event stream
// rather than a single request/response exchange.
func isStreamPath(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != "seat" {
		return false
	}
	switch parts[2] {
	case "list", "add", "remove":
		return false
	}
	return true
}

func dirString(clientToServer bool) string {
	if clientToServer {
		return "C→S"
	}
	return "S→C"
}
