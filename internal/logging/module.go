package logging

import (
	"context"
	"os"

	"cafe_admin/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module tees the application logger into the log file. Decorations only reach
// the scope that declares them, so this is a root-level option set.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(func(cfg config.Config) (*os.File, error) {
			return OpenLogFile(cfg.LogFile)
		}),
		fx.Decorate(func(base *zap.Logger, cfg config.Config, file *os.File) *zap.Logger {
			if file == nil {
				return base
			}
			return AttachFileLogger(base, zapcore.AddSync(file), FileLevel(cfg.Debug))
		}),
		fx.Invoke(func(lc fx.Lifecycle, file *os.File, logger *zap.Logger) {
			if file == nil {
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					_ = logger.Sync()
					return file.Close()
				},
			})
		}),
	)
}
