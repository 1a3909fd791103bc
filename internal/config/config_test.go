package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func clearEnv(t *testing.T) {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad(t *testing.T) {
	Convey("Given no file and no environment", t, func() {
		clearEnv(t)

		Convey("Defaults are returned", func() {
			cfg, err := Load()
			So(err, ShouldBeNil)
			So(cfg.RESTPort, ShouldEqual, "8080")
			So(cfg.ShiftSource, ShouldEqual, "html")
			So(cfg.FallbackToAPI, ShouldBeTrue)
			So(cfg.CacheTTL, ShouldEqual, 24*time.Hour)
			So(cfg.Workers, ShouldEqual, 4)
		})

		Convey("Environment variables override defaults", func() {
			t.Setenv("ICETIME_REST_PORT", "9090")
			t.Setenv("ICETIME_SHIFT_SOURCE", "api")
			t.Setenv("ICETIME_WORKERS", "8")
			t.Setenv("ICETIME_REQUEST_INTERVAL", "2s")
			t.Setenv("ICETIME_ENABLE_SCHEDULER", "true")
			t.Setenv("ICETIME_SCHEDULE_TEAMS", "mtl, tor")

			cfg, err := Load()
			So(err, ShouldBeNil)
			So(cfg.RESTPort, ShouldEqual, "9090")
			So(cfg.ShiftSource, ShouldEqual, "api")
			So(cfg.Workers, ShouldEqual, 8)
			So(cfg.RequestInterval, ShouldEqual, 2*time.Second)
			So(cfg.EnableScheduler, ShouldBeTrue)
			So(cfg.ScheduleTeams, ShouldResemble, []string{"MTL", "TOR"})
		})

		Convey("A YAML file sits between defaults and the environment", func() {
			path := filepath.Join(t.TempDir(), "icetime.yaml")
			body := "ws_port: \"7001\"\nrest_port: \"7000\"\ncache_ttl: 1h\nschedule_teams:\n  - BOS\n"
			So(os.WriteFile(path, []byte(body), 0o600), ShouldBeNil)
			t.Setenv(FileEnv, path)
			t.Setenv("ICETIME_REST_PORT", "7100")

			cfg, err := Load()
			So(err, ShouldBeNil)
			So(cfg.WSPort, ShouldEqual, "7001")
			So(cfg.RESTPort, ShouldEqual, "7100")
			So(cfg.CacheTTL, ShouldEqual, time.Hour)
			So(cfg.ScheduleTeams, ShouldResemble, []string{"BOS"})
		})

		Convey("A missing file is an error", func() {
			t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := Load()
			So(err, ShouldNotBeNil)
		})

		Convey("Invalid values are rejected together", func() {
			t.Setenv("ICETIME_SHIFT_SOURCE", "pdf")
			t.Setenv("ICETIME_SCHEDULE_HOUR", "25")
			_, err := Load()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "shift_source")
			So(err.Error(), ShouldContainSubstring, "schedule_hour")
		})

		Convey("The scheduler needs teams", func() {
			t.Setenv("ICETIME_ENABLE_SCHEDULER", "true")
			_, err := Load()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestNewLogger(t *testing.T) {
	Convey("Unknown levels fall back to info", t, func() {
		cfg := New()
		cfg.LogLevel = "chatty"
		logger := cfg.NewLogger()
		So(logger.Enabled(context.Background(), slog.LevelDebug), ShouldBeFalse)

		cfg.LogLevel = "debug"
		cfg.LogFormat = "json"
		So(cfg.NewLogger().Enabled(context.Background(), slog.LevelDebug), ShouldBeTrue)
	})
}
