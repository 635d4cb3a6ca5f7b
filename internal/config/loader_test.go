package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/corex-retail/sales-forecast/internal/adapters/predictor"
	"github.com/corex-retail/sales-forecast/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"FORECAST_CONFIG",
	"FORECAST_HOST",
	"FORECAST_PORT",
	"FORECAST_MODEL_PATH",
	"FORECAST_MODEL_FORMAT",
	"FORECAST_LOG_LEVEL",
	"FORECAST_LOG_FORMAT",
	"FORECAST_LOG_FILE",
	"FORECAST_CORS_ALLOW_ORIGIN",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forecast.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr(), convey.ShouldEqual, "0.0.0.0:5000")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FORECAST_PORT", "8081")
			_ = os.Setenv("FORECAST_MODEL_PATH", "/srv/models/model.txt")
			_ = os.Setenv("FORECAST_MODEL_FORMAT", "lightgbm")
			_ = os.Setenv("FORECAST_CORS_ALLOW_ORIGIN", "https://retail.example")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 8081)
				convey.So(cfg.ModelPath, convey.ShouldEqual, "/srv/models/model.txt")
				convey.So(cfg.ModelFormat, convey.ShouldEqual, "lightgbm")
				convey.So(cfg.CORSAllowOrigin, convey.ShouldEqual, "https://retail.example")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeConfigFile(t, `
host: "127.0.0.1"
port: 9090
model_path: "artifacts/model.json"
log_format: json
`)
			cfg, err := config.Load(ctx, path)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr(), convey.ShouldEqual, "127.0.0.1:9090")
				convey.So(cfg.ModelPath, convey.ShouldEqual, "artifacts/model.json")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.ModelFormat, convey.ShouldEqual, predictor.FormatAuto)
			})
		})

		convey.Convey("When the file comes from FORECAST_CONFIG and env also overrides", func() {
			path := writeConfigFile(t, "port: 9090\nhost: \"127.0.0.1\"\n")
			_ = os.Setenv("FORECAST_CONFIG", path)
			_ = os.Setenv("FORECAST_PORT", "7070")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, 7070)
				convey.So(cfg.Host, convey.ShouldEqual, "127.0.0.1")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			path := writeConfigFile(t, `invalid: yaml: content: [`)
			cfg, err := config.Load(ctx, path)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.Load(ctx, "/non/existent/file.yaml")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("FORECAST_PORT", "not_a_number")
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty model path", func() {
			_ = os.Setenv("FORECAST_MODEL_PATH", "")
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "model_path must not be empty")
			})
		})
	})
}
