//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const serviceName = "seatkitd.service"

var servicePath = filepath.Join("/etc/systemd/system", serviceName)

func install(logger *slog.Logger) error {
	exePath, err := currentExecutable()
	if err != nil {
		return err
	}

	if err := os.WriteFile(servicePath, []byte(systemdUnit(exePath)), 0o644); err != nil {
		return err
	}

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	if err := systemctl("enable", serviceName); err != nil {
		return err
	}
	if err := systemctl("restart", serviceName); err != nil {
		return err
	}

	logger.Info("systemd service installed", "service", serviceName, "exe", exePath)
	return nil
}

func uninstall(logger *slog.Logger) error {
	var errs []error
	errs = append(errs, systemctl("stop", serviceName))
	errs = append(errs, systemctl("disable", serviceName))
	if err := os.Remove(servicePath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	errs = append(errs, systemctl("daemon-reload"))

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("systemd service removed", "service", serviceName)
	return nil
}

func systemdUnit(exePath string) string {
	return fmt.Sprintf(`[Unit]
Description=seatkit seat and keyboard state server
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%q server
WorkingDirectory=%s
Restart=on-failure
RestartSec=2

[Install]
WantedBy=multi-user.target
`, exePath, filepath.Dir(exePath))
}

func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
