// Package logging builds the process zap logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/die-net/socks5d/internal/config"
)

// New returns a console logger at cfg.Level. Output goes to stderr, or to
// cfg.File with size based rotation when set. The returned closer flushes
// and closes the file.
func New(cfg config.Log) (*zap.Logger, io.Closer, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var (
		ws     zapcore.WriteSyncer
		closer io.Closer = nopCloser{}
		encode           = zapcore.CapitalColorLevelEncoder
	)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		ws = zapcore.AddSync(lj)
		closer = lj
		encode = zapcore.CapitalLevelEncoder
	} else {
		ws = zapcore.Lock(os.Stderr)
	}

	return zap.New(newCore(ws, level, encode)), closer, nil
}

func newCore(ws zapcore.WriteSyncer, level zapcore.LevelEnabler, encode zapcore.LevelEncoder) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    encode,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeName:     zapcore.FullNameEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}), ws, level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
