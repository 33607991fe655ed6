package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/stepwise/internal/config"
	"github.com/aretw0/stepwise/internal/logging"
)

// App carries the configuration and the output streams shared by commands.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

// NewApp loads the configuration, lets override adjust it (flags), and builds
// the logger.
func NewApp(dotenv string, override func(*config.Config)) (*App, error) {
	cfg, err := config.Load(dotenv)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		cfg.Store = strings.ToLower(cfg.Store)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &App{
		Config: cfg,
		Logger: logging.New(level),
		In:     os.Stdin,
		Out:    os.Stdout,
	}, nil
}

// printSystemMessage prints a standardized system message.
func (a *App) printSystemMessage(format string, args ...any) {
	fmt.Fprintf(a.Out, ">>> %s\n", fmt.Sprintf(format, args...))
}
