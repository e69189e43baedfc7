package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/samber/lo"

	"github.com/hillu/laurel/pkg/app"
	"github.com/hillu/laurel/pkg/config"
	laurellog "github.com/hillu/laurel/pkg/log"
)

const defaultVersion = "unversioned"

var (
	commit  string
	version = defaultVersion
	date    string

	configPath string
	dumpConfig bool
	debugFlag  bool
	dryRun     bool
)

func main() {
	updateBuildInfo()

	info := fmt.Sprintf("%s\nDate: %s\nCommit: %s\nOS: %s\nArch: %s",
		version, date, commit, runtime.GOOS, runtime.GOARCH)

	flaggy.SetName("laurel")
	flaggy.SetDescription("Transform and enrich Linux audit events into structured JSON")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/hillu/laurel"

	flaggy.String(&configPath, "c", "config", "Path to the laurel.toml configuration file")
	flaggy.Bool(&dumpConfig, "", "dump-config", "Print the merged configuration and exit")
	flaggy.Bool(&debugFlag, "d", "debug", "Enable verbose debug logging")
	flaggy.Bool(&dryRun, "", "dry-run", "Parse and enrich but do not write to the audit log sink")
	flaggy.SetVersion(info)

	flaggy.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err.Error())
	}

	if dumpConfig {
		encoder := toml.NewEncoder(os.Stdout)
		if err := encoder.Encode(cfg); err != nil {
			log.Fatal(err.Error())
		}
		os.Exit(0)
	}

	if dryRun {
		cfg.AuditLog.File = os.DevNull
	}

	logEntry := laurellog.NewLogger(cfg, debugFlag)

	a, err := app.NewApp(cfg, logEntry)
	if err != nil {
		logFatal(logEntry, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		logFatal(logEntry, err)
	}
}

func logFatal(logEntry interface{ Errorf(string, ...interface{}) }, err error) {
	wrapped := errors.Wrap(err, 0)
	stackTrace := wrapped.ErrorStack()
	logEntry.Errorf("%s", stackTrace)
	log.Fatalf("laurel: %s\n\n%s", err.Error(), stackTrace)
}

func updateBuildInfo() {
	if version == defaultVersion {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			revision, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.revision"
			})
			if ok {
				commit = revision.Value
				if len(commit) > 7 {
					version = commit[:7]
				} else {
					version = commit
				}
			}
			t, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.time"
			})
			if ok {
				date = t.Value
			}
		}
	}
}
