package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"changeplan/internal/domain"

	"github.com/fsnotify/fsnotify"
)

// Pool caches one *sql.DB per target so repeated probes against the same
// store reuse the handle. SQLite targets are additionally watched on disk:
// when the file is removed or replaced (e.g. a fixture database swapped out
// underneath us), the stale handle is dropped and the next probe reopens.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*poolEntry
	watched map[string]string // absolute sqlite path → pool key

	watcher *fsnotify.Watcher
	done    chan struct{}
}

type poolEntry struct {
	db       *sql.DB
	dialect  Dialect
	openedAt time.Time
}

// NewPool creates an empty pool. The file watcher is best-effort: if it
// cannot be created, sqlite handles simply are not invalidated on file swap.
func NewPool() *Pool {
	p := &Pool{
		entries: make(map[string]*poolEntry),
		watched: make(map[string]string),
		done:    make(chan struct{}),
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[POOL] file watcher unavailable: %v", err)
		return p
	}
	p.watcher = watcher
	go p.watchLoop()
	return p
}

// Get returns an open handle and dialect for the target, opening one if the
// pool has none. The handle is verified with a ping on first open.
func (p *Pool) Get(ctx context.Context, target domain.Target) (*sql.DB, Dialect, error) {
	key := target.Key()

	p.mu.Lock()
	if e, ok := p.entries[key]; ok {
		p.mu.Unlock()
		return e.db, e.dialect, nil
	}
	p.mu.Unlock()

	dialect, err := DialectFor(target.Driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(target))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dialect.DriverName(), err)
	}
	if target.Driver == domain.DriverSQLite {
		// SQLite only supports one writer; single connection prevents SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", dialect.DriverName(), err)
	}

	// A concurrent Get may have opened the same target while we were not
	// holding the lock; keep the first handle and discard ours.
	p.mu.Lock()
	if e, ok := p.entries[key]; ok {
		p.mu.Unlock()
		db.Close()
		return e.db, e.dialect, nil
	}
	p.entries[key] = &poolEntry{db: db, dialect: dialect, openedAt: time.Now()}
	p.mu.Unlock()

	if target.Driver == domain.DriverSQLite {
		p.watchFile(target.Host, key)
	}
	return db, dialect, nil
}

// Invalidate closes and drops the pooled handle for a target, if any.
func (p *Pool) Invalidate(target domain.Target) {
	p.invalidateKey(target.Key())
}

func (p *Pool) invalidateKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[key]; ok {
		_ = e.db.Close()
		delete(p.entries, key)
	}
}

// watchFile registers a sqlite file for swap detection. The parent directory
// is watched (a removed file cannot be watched directly) and events are
// matched back to the file path.
func (p *Pool) watchFile(path, key string) {
	if p.watcher == nil {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	p.mu.Lock()
	_, already := p.watched[abs]
	p.watched[abs] = key
	p.mu.Unlock()
	if already {
		return
	}
	if err := p.watcher.Add(filepath.Dir(abs)); err != nil {
		log.Printf("[POOL] watch %s: %v", filepath.Dir(abs), err)
	}
}

func (p *Pool) watchLoop() {
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			p.mu.Lock()
			key, ok := p.watched[abs]
			p.mu.Unlock()
			if ok {
				log.Printf("[POOL] %s replaced on disk, dropping pooled handle", abs)
				p.invalidateKey(key)
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[POOL] watcher error: %v", err)
		case <-p.done:
			return
		}
	}
}

// Close tears down every pooled handle and the file watcher.
func (p *Pool) Close() error {
	close(p.done)
	if p.watcher != nil {
		_ = p.watcher.Close()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, e := range p.entries {
		_ = e.db.Close()
		delete(p.entries, key)
	}
	return nil
}
