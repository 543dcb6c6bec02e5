package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given no file or env overrides", t, func() {
		ctx := context.Background()

		Convey("When loading", func() {
			cfg, err := Load(ctx)
			So(err, ShouldBeNil)

			Convey("Then defaults apply", func() {
				So(cfg.Addr, ShouldEqual, ":9090")
				So(cfg.LogLevel, ShouldEqual, "info")
				So(cfg.Store, ShouldEqual, StoreMemory)
				So(cfg.PollIntervalMS, ShouldEqual, 5_000)
				So(cfg.MinRoundDurationS, ShouldEqual, 30)
				So(cfg.Workers, ShouldEqual, 4)
				So(cfg.QueueSize, ShouldEqual, 1024)
			})

			Convey("And scoring defaults are usable as round params", func() {
				p := cfg.DefaultParams()
				So(p.Validate(), ShouldBeNil)
				So(p.Lambda, ShouldAlmostEqual, 0.6)
				So(p.Beta, ShouldAlmostEqual, 0.2)
				So(p.Gamma, ShouldAlmostEqual, 0.4)
			})

			Convey("And duration helpers convert correctly", func() {
				So(cfg.PollInterval(), ShouldEqual, 5*time.Second)
				So(cfg.MinRoundDuration(), ShouldEqual, 30*time.Second)
			})
		})
	})
}

func TestEnvOverrides(t *testing.T) {
	Convey("Given env overrides", t, func() {
		ctx := context.Background()
		t.Setenv("GAMBIT_ADDR", ":7070")
		t.Setenv("GAMBIT_LOG_LEVEL", "debug")
		t.Setenv("GAMBIT_POLL_INTERVAL_MS", "1000")
		t.Setenv("GAMBIT_WORKERS", "8")
		t.Setenv("GAMBIT_QUEUE_SIZE", "256")
		t.Setenv("GAMBIT_LAMBDA", "0.5")

		Convey("When loading", func() {
			cfg, err := Load(ctx)
			So(err, ShouldBeNil)

			Convey("Then env values win over defaults", func() {
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.LogLevel, ShouldEqual, "debug")
				So(cfg.PollIntervalMS, ShouldEqual, 1000)
				So(cfg.Workers, ShouldEqual, 8)
				So(cfg.QueueSize, ShouldEqual, 256)
				So(cfg.Lambda, ShouldAlmostEqual, 0.5)
			})

			Convey("And untouched fields keep their defaults", func() {
				So(cfg.Store, ShouldEqual, StoreMemory)
				So(cfg.Beta, ShouldAlmostEqual, 0.2)
			})
		})
	})
}

func TestFileLayer(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("addr: \":8081\"\nworkers: 2\n"), 0o600), ShouldBeNil)
		t.Setenv("GAMBIT_CONFIG", path)

		Convey("When loading", func() {
			cfg, err := Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8081")
			So(cfg.Workers, ShouldEqual, 2)
		})

		Convey("When env overrides the file", func() {
			t.Setenv("GAMBIT_ADDR", ":8082")
			cfg, err := Load(ctx)
			So(err, ShouldBeNil)

			Convey("Then env wins", func() {
				So(cfg.Addr, ShouldEqual, ":8082")
				So(cfg.Workers, ShouldEqual, 2)
			})
		})

		Convey("When the file does not exist", func() {
			t.Setenv("GAMBIT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := Load(ctx)
			So(errors.Is(err, ErrLoadConfig), ShouldBeTrue)
		})
	})
}

func TestValidation(t *testing.T) {
	Convey("Given invalid configurations", t, func() {
		ctx := context.Background()

		cases := []struct {
			name  string
			key   string
			value string
		}{
			{"an unknown store", "GAMBIT_STORE", "sqlite"},
			{"postgres without a DSN", "GAMBIT_STORE", "postgres"},
			{"a zero poll interval", "GAMBIT_POLL_INTERVAL_MS", "0"},
			{"a poll interval too long", "GAMBIT_POLL_INTERVAL_MS", "60000"},
			{"zero workers", "GAMBIT_WORKERS", "0"},
			{"a zero queue size", "GAMBIT_QUEUE_SIZE", "0"},
			{"a negative coefficient", "GAMBIT_GAMMA", "-0.1"},
			{"an empty listen address", "GAMBIT_ADDR", ""},
		}

		for _, tc := range cases {
			Convey("When loading with "+tc.name, func() {
				t.Setenv(tc.key, tc.value)
				_, err := Load(ctx)
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
				So(os.Unsetenv(tc.key), ShouldBeNil)
			})
		}

		Convey("When postgres has a DSN", func() {
			t.Setenv("GAMBIT_STORE", "postgres")
			t.Setenv("GAMBIT_POSTGRES_DSN", "postgres://localhost:5432/gambit")
			cfg, err := Load(ctx)
			So(err, ShouldBeNil)
			So(cfg.Store, ShouldEqual, StorePostgres)
		})
	})
}
