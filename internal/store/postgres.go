package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
)

const notifyChannel = "store_changes"

const schema = `
CREATE TABLE IF NOT EXISTS store_nodes (
	path  TEXT PRIMARY KEY,
	value JSONB NOT NULL
)`

// Postgres stores every leaf of the tree as one row keyed by its full path. Objects are
// flattened on write and rebuilt on read; arrays are kept whole as a leaf.
type Postgres struct {
	db  *sql.DB
	dsn string
	log *zap.Logger
}

func NewPostgres(db *sql.DB, dsn string, log *zap.Logger) *Postgres {
	return &Postgres{db: db, dsn: dsn, log: log}
}

// Migrate creates the node table when it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, path string) (<-chan Event, error) {
	watched := Join(Split(path)...)
	if watched == "" {
		return nil, fmt.Errorf("store: subscribe: empty path")
	}
	listener := pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.log.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("store: subscribe %q: %w", path, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer listener.Close()
		if !p.emit(ctx, out, watched) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// nil after a reconnect: notifications may have been missed
				if n != nil && !related(n.Extra, watched) {
					continue
				}
				if !p.emit(ctx, out, watched) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (p *Postgres) emit(ctx context.Context, out chan<- Event, path string) bool {
	v, err := p.ReadOnce(ctx, path)
	ev := Event{Data: AsMap(v)}
	if err != nil {
		ev = Event{Err: err}
	} else if ev.Data == nil {
		ev.Data = map[string]interface{}{}
	}
	select {
	case out <- ev:
	case <-ctx.Done():
		return false
	}
	if err != nil {
		p.log.Error("postgres subscription read failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

func (p *Postgres) ReadOnce(ctx context.Context, path string) (interface{}, error) {
	segs := Split(path)
	root := Join(segs...)
	rows, err := p.db.QueryContext(ctx, `
		SELECT path, value::text FROM store_nodes
		WHERE path = $1 OR left(path, length($1) + 1) = $1 || '/'`, root)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", root, err)
	}
	defer rows.Close()

	tree := map[string]interface{}{}
	for rows.Next() {
		var leafPath, raw string
		if err := rows.Scan(&leafPath, &raw); err != nil {
			return nil, fmt.Errorf("store: read %s: %w", root, err)
		}
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if leafPath == root {
			return v, nil
		}
		assign(tree, Split(strings.TrimPrefix(leafPath, root+"/")), v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read %s: %w", root, err)
	}
	if len(tree) == 0 {
		return nil, nil
	}
	return tree, nil
}

func (p *Postgres) AtomicUpdate(ctx context.Context, updates map[string]interface{}) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.StoreWrite("begin", err)
	}
	defer tx.Rollback()

	resolved := updates
	if hasPlaceholder(updates) {
		var now int64
		err := tx.QueryRowContext(ctx, `SELECT (EXTRACT(EPOCH FROM clock_timestamp()) * 1000)::BIGINT`).Scan(&now)
		if err != nil {
			return errs.StoreWrite("read server time", err)
		}
		resolved = resolve(updates, now).(map[string]interface{})
	}

	for _, raw := range sortedKeys(resolved) {
		segs := Split(raw)
		if len(segs) == 0 {
			return fmt.Errorf("store: atomic update: empty path")
		}
		path := Join(segs...)
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM store_nodes
			WHERE path = $1 OR left(path, length($1) + 1) = $1 || '/' OR path = ANY($2)`,
			path, pq.Array(ancestors(segs))); err != nil {
			return errs.StoreWrite("atomic update", err)
		}
		leaves, err := flatten(path, resolved[raw])
		if err != nil {
			return err
		}
		for _, leafPath := range sortedLeafPaths(leaves) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO store_nodes (path, value) VALUES ($1, $2::jsonb)
				ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value`,
				leafPath, leaves[leafPath]); err != nil {
				return errs.StoreWrite("atomic update", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
			return errs.StoreWrite("atomic update", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.StoreWrite("commit", err)
	}
	return nil
}

func (p *Postgres) Write(ctx context.Context, path string, value interface{}) error {
	return p.AtomicUpdate(ctx, map[string]interface{}{path: value})
}

func (p *Postgres) Remove(ctx context.Context, path string) error {
	return p.AtomicUpdate(ctx, map[string]interface{}{path: nil})
}

func (p *Postgres) Append(ctx context.Context, collection string, value map[string]interface{}) (string, error) {
	key := NewKey()
	if err := p.Write(ctx, Join(collection, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// ancestors lists the proper prefixes of segs; any of them stored as a leaf is
// overwritten by a write below it.
func ancestors(segs []string) []string {
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, Join(segs[:i]...))
	}
	return out
}

// flatten maps every leaf under value to its encoded JSON keyed by full path.
func flatten(path string, value interface{}) (map[string]string, error) {
	leaves := map[string]string{}
	var walk func(string, interface{}) error
	walk = func(p string, v interface{}) error {
		if v == nil {
			return nil
		}
		if m, ok := v.(map[string]interface{}); ok {
			for k, c := range m {
				if err := walk(p+"/"+k, c); err != nil {
					return err
				}
			}
			return nil
		}
		s, err := encode(v)
		if err != nil {
			return err
		}
		leaves[p] = s
		return nil
	}
	if err := walk(path, value); err != nil {
		return nil, err
	}
	return leaves, nil
}

func sortedLeafPaths(leaves map[string]string) []string {
	m := make(map[string]interface{}, len(leaves))
	for k := range leaves {
		m[k] = nil
	}
	return sortedKeys(m)
}
