package main

import (
	"os"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

// config is the optional TOML configuration accepted by every command.
type config struct {
	Cache struct {
		// Graphs is the capacity of the control flow graph cache.
		Graphs int
	}
	Output struct {
		// Color forces colored output on or off; unset follows the terminal.
		Color *bool
	}
}

func defaultConfig() config {
	var cfg config
	cfg.Cache.Graphs = 1024
	return cfg
}

// loadConfig reads --config when given, applying defaults otherwise.
func loadConfig(ctx *cli.Context) (config, error) {
	cfg := defaultConfig()
	path := ctx.String(configFlag.Name)
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
