package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/matheus3301/moodtrack/internal/config"
	"github.com/matheus3301/moodtrack/internal/daemon"
	"github.com/matheus3301/moodtrack/internal/profile"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	mirrorFlag := flag.String("mirror", "", "mirror URL (overrides config mirror_url)")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfgPath := profile.ConfigPath()
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
		if err := config.Save(cfgPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not persist device id: %v\n", err)
		}
	}
	if *mirrorFlag != "" {
		cfg.MirrorURL = *mirrorFlag
	}

	params, err := daemon.ParamsFromConfig(name, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(params),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)

	app.Run()
}
