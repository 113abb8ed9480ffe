package app

import (
	"log"
	"os"
	"path/filepath"

	"changeplan/internal/dbclient"
	"changeplan/internal/domain"
	"changeplan/internal/engine"
	mcpserver "changeplan/internal/mcp"
	"changeplan/internal/schema"
	"changeplan/internal/storage"
	"changeplan/internal/trace"

	"github.com/robfig/cron/v3"
)

// Config holds the server's startup options.
type Config struct {
	// DataDir is where the engine keeps its own state (conversations).
	DataDir string
	// FormsDBPath is the default store validation probes run against.
	FormsDBPath string
}

// DefaultConfig resolves paths from the environment, falling back to the
// user's local share directory.
func DefaultConfig() Config {
	dataDir := os.Getenv("CHANGEPLAN_DATA_DIR")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".local", "share", "changeplan")
	}
	formsDB := os.Getenv("CHANGEPLAN_FORMS_DB")
	if formsDB == "" {
		formsDB = filepath.Join(dataDir, "forms.sqlite")
	}
	return Config{DataDir: dataDir, FormsDBPath: formsDB}
}

// ServeMCP wires storage, engine, and tracing together and runs the MCP
// server on stdin/stdout until the client disconnects.
func ServeMCP(cfg Config) {
	db, err := storage.New(filepath.Join(cfg.DataDir, "sessions.db"))
	if err != nil {
		log.Fatalf("Failed to open sessions database: %v", err)
	}
	defer db.Close()

	pool := dbclient.NewPool()
	defer pool.Close()

	registry := trace.NewRegistry(trace.DefaultMaxTraces, trace.DefaultTTL)

	// Evict idle traces on a schedule so the arena stays bounded.
	sched := cron.New()
	if _, err := sched.AddFunc("@every 1h", func() {
		if n := registry.Sweep(); n > 0 {
			log.Printf("[TRACE] evicted %d idle trace(s)", n)
		}
	}); err != nil {
		log.Printf("[TRACE] sweep schedule: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	eng := engine.New(schema.Default(), pool)
	conversations := storage.NewConversationStore(db)

	srv := mcpserver.New(mcpserver.Deps{
		Engine:        eng,
		Conversations: conversations,
		Registry:      registry,
		Target:        domain.SQLiteTarget(cfg.FormsDBPath),
	})

	log.Printf("[MCP] Validating against %s", cfg.FormsDBPath)
	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
