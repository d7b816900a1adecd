package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/grafana/loki-client-go/loki"
	promcfg "github.com/prometheus/common/config"
	slogloki "github.com/samber/slog-loki/v3"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Alijeyrad/hairai_backend/config"
	"github.com/Alijeyrad/hairai_backend/pkg/constants"
	"github.com/Alijeyrad/hairai_backend/pkg/reqctx"
)

// New builds a logger from config, fanning out to stdout, a rotated file and
// Loki. The returned func flushes and stops the Loki client.
func New(cfg *config.Config) (*slog.Logger, func(), error) {
	level := parseLevel(cfg.Logging.Level)
	isDev := strings.EqualFold(cfg.Server.Environment, "development")
	out := cfg.Logging.Output

	var writers []io.Writer

	// stdout is the fallback when nothing else is configured
	if out.Stdout || (!out.File.Enabled && !out.Loki.Enabled) {
		writers = append(writers, os.Stdout)
	}

	if out.File.Enabled {
		writers = append(writers, &lumberjack.Logger{
			Filename:   out.File.Path,
			MaxSize:    out.File.MaxSizeMB,
			MaxBackups: out.File.MaxBackups,
			MaxAge:     out.File.MaxAgeDays,
			Compress:   out.File.Compress,
		})
	}

	var handlers []slog.Handler
	if len(writers) > 0 {
		w := io.MultiWriter(writers...)
		opts := &slog.HandlerOptions{
			Level:     level,
			AddSource: isDev,
		}
		if strings.EqualFold(cfg.Logging.Format, "json") || !isDev {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}

	cleanup := func() {}
	if out.Loki.Enabled {
		client, err := newLokiClient(out.Loki)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slogloki.Option{Level: level, Client: client}.NewLokiHandler())
		cleanup = client.Stop
	}

	logger := slog.New(reqctx.NewLogHandler(slogmulti.Fanout(handlers...))).With(
		slog.String("service", cfg.Observability.ServiceName),
		slog.String("version", cfg.Observability.ServiceVersion),
		slog.String("env", cfg.Server.Environment),
	)
	return logger, cleanup, nil
}

func newLokiClient(c config.LokiConfig) (*loki.Client, error) {
	lc, err := loki.NewDefaultConfig(strings.TrimRight(c.Endpoint, "/") + "/loki/api/v1/push")
	if err != nil {
		return nil, fmt.Errorf("loki config: %w", err)
	}
	lc.TenantID = c.TenantID
	if c.Username != "" {
		lc.Client.BasicAuth = &promcfg.BasicAuth{
			Username: c.Username,
			Password: promcfg.Secret(c.Password),
		}
	}

	client, err := loki.New(lc)
	if err != nil {
		return nil, fmt.Errorf("loki client: %w", err)
	}
	return client, nil
}

func Default() *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: false,
	})
	return slog.New(h).With(slog.String("service", constants.AppName))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
