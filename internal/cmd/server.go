package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/seatkit/seatkit/internal/configpaths"
	"github.com/seatkit/seatkit/internal/server/api"
	"github.com/seatkit/seatkit/internal/server/api/auth"
	"github.com/seatkit/seatkit/internal/server/api/handler"
	smgr "github.com/seatkit/seatkit/internal/server/seat"
)

const keyFileName = "seatkit.key.txt"

type Server struct {
	SeatConfig        smgr.ManagerConfig `embed:"" prefix:"seat."`
	ApiServerConfig   api.ServerConfig   `embed:"" prefix:"api."`
	ConnectionTimeout time.Duration      `help:"Deadline for API request connections" default:"30s" env:"SEATKIT_CONNECTION_TIMEOUT"`
}

// Run is called by Kong when the server command is executed.
func (s *Server) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger)
}

func (s *Server) StartServer(ctx context.Context, logger *slog.Logger) error {
	s.ApiServerConfig.ConnectionTimeout = s.ConnectionTimeout

	logger.Info("Starting seatkit server", "addr", s.ApiServerConfig.Addr)

	keyFileDir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("failed to resolve key file path: %w", err)
	}
	keyFilePath := path.Join(keyFileDir, keyFileName)
	if pwd, err := os.ReadFile(keyFilePath); err == nil {
		s.ApiServerConfig.Password = strings.TrimSpace(string(pwd))
	} else {
		newPwd, err := auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate new API password: %w", err)
		}
		if err := os.MkdirAll(keyFileDir, 0o700); err != nil {
			return fmt.Errorf("failed to create config dir for key file: %w", err)
		}
		if err := os.WriteFile(keyFilePath, []byte(newPwd), 0o600); err != nil {
			return fmt.Errorf("failed to write new API password to file: %w", err)
		}
		s.ApiServerConfig.Password = newPwd
		logger.Info("Generated API server password", "path", keyFilePath)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			logger.Info("-------------------------------------")
			logger.Info("Your seatkit server password is:")
			logger.Info("-------------------------------------")
			logger.Info(newPwd)
			logger.Info("-------------------------------------")
			logger.Info("You can change this password at any time by editing the file")
		}
	}

	if s.ApiServerConfig.Addr == "" {
		logger.Error("API server address must be set (default :4242).")
		return fmt.Errorf("API server address must be set (default :4242)")
	}

	seats := smgr.New(s.SeatConfig, logger)
	defer func() { _ = seats.Close() }()

	apiSrv, err := api.New(seats, s.ApiServerConfig.Addr, s.ApiServerConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	r := apiSrv.Router()
	r.Register("ping", handler.Ping(Version))
	r.Register("seat/list", handler.SeatList(seats))
	r.Register("seat/create", handler.SeatCreate(seats))
	r.Register("seat/remove", handler.SeatRemove(seats))
	r.Register("seat/{id}/list", handler.SeatKeyboardsList(seats))
	r.Register("seat/{id}/add", handler.SeatKeyboardAdd(seats, apiSrv))
	r.Register("seat/{id}/remove", handler.SeatKeyboardRemove(seats))
	r.Register("seat/{id}/keyboard/{kid}/keymap", handler.SeatKeymapSet(seats))
	r.Register("seat/{id}/keyboard/{kid}/repeat", handler.SeatRepeatSet(seats))
	r.RegisterStream("seat/{seatId}/{keyboardid}", api.DeviceStreamHandler())

	if err := apiSrv.Start(); err != nil {
		logger.Error("failed to start API server", "error", err)
		return err
	}

	<-ctx.Done()
	apiSrv.Close()
	return nil
}
