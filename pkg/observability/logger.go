// Package observability contains logging setup and prometheus metrics.
package observability

import (
    "os"
    "path/filepath"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "gopkg.in/natefinch/lumberjack.v2"

    "edtsp/pkg/config"
    "edtsp/pkg/protocol"
)

// Lower bounds applied to rotation settings.
const (
    minRotateSizeMB  = 10
    minRotateBackups = 1
    minRotateAgeDays = 7
)

// SetupLogger builds the process logger from c, installs it as the zap
// global and routes the stdlib log package through it. Callers defer Sync.
func SetupLogger(c config.LogConfig) (*zap.Logger, error) {
    enc := newEncoder(c)
    level := zap.NewAtomicLevelAt(parseLevel(c.Level))

    cores := make([]zapcore.Core, 0, len(c.Outputs))
    for _, out := range c.Outputs {
        cores = append(cores, zapcore.NewCore(enc, openSink(out, c.Rotation), level))
    }

    opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)}
    if c.Development { opts = append(opts, zap.Development()) }

    logger := zap.New(zapcore.NewTee(cores...), opts...)
    zap.ReplaceGlobals(logger)
    _, _ = zap.RedirectStdLogAt(logger, zap.InfoLevel)
    return logger, nil
}

// WithDevice tags every entry with the local device id and process instance.
func WithDevice(l *zap.Logger, id uint32, instance string) *zap.Logger {
    return l.With(zap.String("self", protocol.FormatID(id)), zap.String("instance", instance))
}

func newEncoder(c config.LogConfig) zapcore.Encoder {
    ec := zap.NewProductionEncoderConfig()
    if c.Development {
        ec = zap.NewDevelopmentEncoderConfig()
        ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    ec.EncodeTime = zapcore.ISO8601TimeEncoder
    if strings.EqualFold(c.Format, "json") {
        // colour codes would corrupt JSON
        ec.EncodeLevel = zapcore.LowercaseLevelEncoder
        return zapcore.NewJSONEncoder(ec)
    }
    return zapcore.NewConsoleEncoder(ec)
}

func parseLevel(s string) zapcore.Level {
    s = strings.ToLower(strings.TrimSpace(s))
    if s == "warning" { s = "warn" }
    lvl, err := zapcore.ParseLevel(s)
    if err != nil { return zap.InfoLevel }
    return lvl
}

// openSink maps an output name to a write syncer. Anything other than
// stdout/stderr is a file path; with rotation on, rotation.filename (when
// set) replaces it.
func openSink(out string, r config.RotationConfig) zapcore.WriteSyncer {
    switch strings.ToLower(out) {
    case "stdout":
        return zapcore.Lock(os.Stdout)
    case "stderr":
        return zapcore.Lock(os.Stderr)
    }
    if r.Enable {
        name := out
        if strings.TrimSpace(r.Filename) != "" { name = r.Filename }
        return zapcore.AddSync(&lumberjack.Logger{
            Filename:   name,
            MaxSize:    max(r.MaxSizeMB, minRotateSizeMB),
            MaxBackups: max(r.MaxBackups, minRotateBackups),
            MaxAge:     max(r.MaxAgeDays, minRotateAgeDays),
            Compress:   r.Compress,
        })
    }
    if dir := filepath.Dir(out); dir != "." { _ = os.MkdirAll(dir, 0o755) }
    f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
    if err != nil {
        return zapcore.Lock(os.Stderr)
    }
    return zapcore.Lock(f)
}
