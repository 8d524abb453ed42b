// Package auth resolves the basic auth credentials sent to the server.
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

var ErrSecretCommand = errors.New("secret command failed")

// BasicAuth pairs a login with a secret printed by an external command,
// such as "pass show dav/alice".
type BasicAuth struct {
	Login   string
	Command string
	Logger  zerolog.Logger
}

// Credentials runs the secret command and returns its first output line.
func (b *BasicAuth) Credentials(ctx context.Context) (string, string, error) {
	if b.Login == "" {
		return "", "", errors.New("no login configured")
	}
	if strings.TrimSpace(b.Command) == "" {
		return "", "", fmt.Errorf("%w: no command configured", ErrSecretCommand)
	}

	cmd := shell(ctx, b.Command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			b.Logger.Debug().Str("stderr", msg).Msg("secret command failed")
		}
		return "", "", fmt.Errorf("%w: %w", ErrSecretCommand, err)
	}

	secret, _, _ := strings.Cut(stdout.String(), "\n")
	secret = strings.TrimSuffix(secret, "\r")
	if secret == "" {
		return "", "", fmt.Errorf("%w: empty output", ErrSecretCommand)
	}
	return b.Login, secret, nil
}

func shell(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
