package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/brezze/brezze/internal/config"
	"github.com/brezze/brezze/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "", "path to config file (default ~/.brezze/config.toml)")
	listenFlag := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	path := *configFlag
	if path == "" {
		path = config.Path()
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "error: load config %s: %v\n", path, err)
			os.Exit(1)
		}
		cfg = config.Default()
	}
	if *listenFlag != "" {
		cfg.Server.Listen = *listenFlag
	}

	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid server config in %s: %v\n", path, err)
		fmt.Fprintf(os.Stderr, "hint: set jwt_secret (16+ chars) in the [server] section\n")
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Config: cfg.Server}),
	)

	app.Run()
}
