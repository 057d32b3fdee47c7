package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/ethereum/go-ethereum/log"

	opservice "github.com/mantlenetworkio/claim-faucet/service"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
)

// FormatType defines a type of log format.
// Supported formats: 'text', 'terminal', 'logfmt', 'json'
type FormatType string

const (
	FormatText     FormatType = "text"
	FormatTerminal FormatType = "terminal"
	FormatLogFmt   FormatType = "logfmt"
	FormatJSON     FormatType = "json"
)

var formatTypes = []FormatType{FormatText, FormatTerminal, FormatLogFmt, FormatJSON}

func (ft FormatType) String() string {
	return string(ft)
}

// Set is used by the flag library to set the flag value.
func (ft *FormatType) Set(value string) error {
	for _, k := range formatTypes {
		if string(k) == value {
			*ft = k
			return nil
		}
	}
	return fmt.Errorf("unrecognized log-format: %q", value)
}

// Clone is used to initialize flag values.
func (ft *FormatType) Clone() any {
	cpy := *ft
	return &cpy
}

// LevelFromString parses a log level, case-insensitive.
func LevelFromString(lvlString string) (slog.Level, error) {
	lvlString = strings.ToLower(lvlString)
	switch lvlString {
	case "trace", "trce":
		return log.LevelTrace, nil
	case "debug", "dbug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelDebug, fmt.Errorf("unknown level: %v", lvlString)
	}
}

type CLIConfig struct {
	Level  slog.Level
	Color  bool
	Format FormatType
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Level:  log.LevelInfo,
		Format: FormatText,
		Color:  term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    LevelFlagName,
			Usage:   "The lowest log level that will be output",
			Value:   "info",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    FormatFlagName,
			Usage:   "Format the log output. Supported formats: 'text', 'terminal', 'logfmt', 'json'",
			Value:   string(FormatText),
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    ColorFlagName,
			Usage:   "Color the log output if in terminal mode",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "LOG_COLOR"),
		},
	}
}

// ReadCLIConfig reads the log config from the CLI context.
// Invalid values fall back to the defaults.
func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	cfg := DefaultCLIConfig()
	if lvl, err := LevelFromString(ctx.String(LevelFlagName)); err == nil {
		cfg.Level = lvl
	}
	if err := cfg.Format.Set(ctx.String(FormatFlagName)); err != nil {
		cfg.Format = FormatText
	}
	if ctx.IsSet(ColorFlagName) {
		cfg.Color = ctx.Bool(ColorFlagName)
	}
	return cfg
}

func (cfg CLIConfig) Check() error {
	for _, k := range formatTypes {
		if k == cfg.Format {
			return nil
		}
	}
	return fmt.Errorf("unrecognized log-format: %q", cfg.Format)
}

func (ft FormatType) handler(w io.Writer, color bool) slog.Handler {
	switch ft {
	case FormatJSON:
		return JSONMsHandler(w)
	case FormatLogFmt:
		return LogfmtMsHandler(w)
	case FormatTerminal:
		return log.NewTerminalHandler(w, color)
	default:
		return log.NewTerminalHandler(w, false)
	}
}

// NewLogger creates a logger writing to w, with a level that can be changed at runtime.
func NewLogger(w io.Writer, cfg CLIConfig) log.Logger {
	h := NewDynamicLogHandler(cfg.Level, cfg.Format.handler(w, cfg.Color))
	return log.NewLogger(h)
}

// SetGlobalLogHandler sets the log handler of the global default logger.
func SetGlobalLogHandler(h slog.Handler) {
	log.SetDefault(log.NewLogger(h))
}

// SetupDefaults sets up a default global logger, to log during CLI parsing.
func SetupDefaults() {
	SetGlobalLogHandler(log.NewTerminalHandlerWithLevel(os.Stdout, log.LevelInfo, false))
}
