package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"duel-session/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stdout
	logFile  *cappedFile
)

// Init configures the global zerolog logger. A configured LOG_FILE receives
// a copy of every line next to stdout.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var console io.Writer = os.Stdout
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	var raw io.Writer = os.Stdout
	writers := []io.Writer{console}
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := openCappedFile(path, cfg.MaxMB)
		if err != nil {
			return err
		}
		writers = append(writers, f)
		raw = io.MultiWriter(os.Stdout, f)
		outputMu.Lock()
		if logFile != nil {
			_ = logFile.Close()
		}
		logFile = f
		outputMu.Unlock()
	}

	outputMu.Lock()
	output = raw
	outputMu.Unlock()

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer returns the raw sink used by non-zerolog loggers such as the
// slog handler behind request logging.
func Writer() io.Writer {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return output
}

func Close() error {
	outputMu.Lock()
	defer outputMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	output = os.Stdout
	return err
}
