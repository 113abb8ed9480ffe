package main

import (
	"flag"

	"changeplan/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the engine's own state")
	flag.StringVar(&cfg.FormsDBPath, "forms-db", cfg.FormsDBPath, "default SQLite database probes run against")
	flag.Parse()

	app.ServeMCP(cfg)
}
