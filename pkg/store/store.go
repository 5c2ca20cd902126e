// Package store persists cards in SQLite. It reads cards back through the
// property builders, so everything loaded is validated like parsed input.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	logging "github.com/ipfs/go-log/v2"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/coolbeans/rolodex/pkg/card"
	"github.com/coolbeans/rolodex/pkg/property"
)

var log = logging.Logger("rolodex/store")

// ErrNotFound is returned when no card has the requested UID.
var ErrNotFound = errors.New("card not found")

// Options configures a Store.
type Options struct {
	// StatementCacheSize bounds the prepared statement cache. Zero selects
	// DefaultStatementCacheSize.
	StatementCacheSize int
	// Registry decides how stored properties are rebuilt. Nil selects the
	// default registry.
	Registry *property.Registry
}

// Store is a SQLite-backed card store. It is safe for concurrent use.
type Store struct {
	db       *sql.DB
	stmts    *statementCache
	registry *property.Registry
}

// Open opens (creating if needed) the database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open card store database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize card store: %w", err)
		}
	}

	stmts, err := newStatementCache(db, opts.StatementCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = property.DefaultRegistry()
	}

	log.Infof("Card store opened at %s", path)
	return &Store{db: db, stmts: stmts, registry: registry}, nil
}

// Close closes the cached statements and the database.
func (s *Store) Close() error {
	s.stmts.close()
	return s.db.Close()
}

// Save stores c, replacing any card with the same UID. A card without a UID
// is assigned one first.
func (s *Store) Save(ctx context.Context, c *card.Card) error {
	uid := c.CheckSetUID()

	if err := s.stmts.warm(ctx, writeQueries...); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.exec(ctx, tx, deleteCardSQL, uid); err != nil {
		return err
	}
	if err := s.exec(ctx, tx, insertCardSQL, uid, c.Kind(), time.Now().Unix()); err != nil {
		return err
	}

	position := 0
	for _, p := range c.Properties() {
		if p.Name() == "uid" {
			continue
		}
		if err := s.saveProperty(ctx, tx, uid, position, p); err != nil {
			return fmt.Errorf("failed to save %s: %w", p.Name(), err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit card %s: %w", uid, err)
	}
	log.Debugw("saved card", "uid", uid, "properties", position)
	return nil
}

func (s *Store) saveProperty(ctx context.Context, tx *sql.Tx, uid string, position int, p property.Property) error {
	mediaType := ""
	if mt, ok := p.(property.MediaTyped); ok {
		mediaType = mt.MediaType()
	}

	var id int64
	err := s.stmts.runTx(ctx, tx, insertPropertySQL, func(stmt *sql.Stmt) error {
		res, err := stmt.ExecContext(ctx, uid, position, p.Name(), p.Specification().DisplayName(),
			p.Group(), p.Value(), mediaType)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return err
	}

	if structured, ok := p.(property.Structured); ok {
		for field, value := range structured.Fields() {
			if err := s.exec(ctx, tx, insertFieldSQL, id, field, value); err != nil {
				return err
			}
		}
	}
	if typed, ok := p.(property.Typed); ok {
		for _, token := range typed.Types() {
			if err := s.exec(ctx, tx, insertTypeSQL, id, token); err != nil {
				return err
			}
		}
	}

	params := p.Parameters()
	i := 0
	for _, key := range params.Keys() {
		values := params.Get(key)
		if len(values) == 0 {
			if err := s.exec(ctx, tx, insertParamSQL, id, i, key, nil); err != nil {
				return err
			}
			i++
			continue
		}
		for _, value := range values {
			if err := s.exec(ctx, tx, insertParamSQL, id, i, key, value); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	return s.stmts.runTx(ctx, tx, query, func(stmt *sql.Stmt) error {
		_, err := stmt.ExecContext(ctx, args...)
		return err
	})
}

// Load rebuilds the card stored under uid.
func (s *Store) Load(ctx context.Context, uid string) (*card.Card, error) {
	var found string
	err := s.stmts.run(ctx, selectCardSQL, func(stmt *sql.Stmt) error {
		return stmt.QueryRowContext(ctx, uid).Scan(&found)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		return nil, fmt.Errorf("failed to load card %s: %w", uid, err)
	}

	rows, err := s.propertyRows(ctx, uid)
	if err != nil {
		return nil, err
	}

	c := card.NewWithRegistry(s.registry)
	c.SetUID(uid)
	for _, row := range rows {
		p, err := s.rebuild(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild %s of card %s: %w", row.name, uid, err)
		}
		c.Push(p)
	}
	return c, nil
}

type propertyRow struct {
	id          int64
	name        string
	displayName string
	group       string
	value       string
	mediaType   string
}

func (s *Store) propertyRows(ctx context.Context, uid string) ([]propertyRow, error) {
	var result []propertyRow
	err := s.stmts.run(ctx, selectPropertiesSQL, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, uid)
		if err != nil {
			return fmt.Errorf("failed to query properties: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var r propertyRow
			if err := rows.Scan(&r.id, &r.name, &r.displayName, &r.group, &r.value, &r.mediaType); err != nil {
				return fmt.Errorf("failed to scan property: %w", err)
			}
			result = append(result, r)
		}
		return rows.Err()
	})
	return result, err
}

// rebuild replays a stored property through its builder.
func (s *Store) rebuild(ctx context.Context, row propertyRow) (property.Property, error) {
	spec, ok := s.registry.Get(row.name)
	if !ok {
		spec = property.Extension(row.displayName)
	}
	b := spec.NewBuilder()
	if err := b.SetGroup(row.group); err != nil {
		return nil, err
	}

	if err := s.rebuildParams(ctx, row.id, b); err != nil {
		return nil, err
	}

	if ts, ok := b.(property.TypeSetter); ok {
		types, err := s.queryStrings(ctx, selectTypesSQL, row.id)
		if err != nil {
			return nil, err
		}
		if err := ts.SetTypes(types...); err != nil {
			return nil, err
		}
	}
	if ms, ok := b.(property.MediaTypeSetter); ok && row.mediaType != "" {
		if err := ms.SetMediaType(row.mediaType); err != nil {
			return nil, err
		}
	}

	if fs, ok := b.(property.FieldSetter); ok {
		fields, err := s.queryFields(ctx, row.id)
		if err != nil {
			return nil, err
		}
		if err := fs.SetFields(fields); err != nil {
			return nil, err
		}
	} else if err := b.SetValue(row.value); err != nil {
		return nil, err
	}
	return b.Build()
}

func (s *Store) rebuildParams(ctx context.Context, id int64, b property.Builder) error {
	return s.stmts.run(ctx, selectParamsSQL, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to query parameters: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var key string
			var value sql.NullString
			if err := rows.Scan(&key, &value); err != nil {
				return fmt.Errorf("failed to scan parameter: %w", err)
			}
			switch {
			case !value.Valid:
				err = b.SetParameter(key)
			case key == property.PrefParam:
				pref, convErr := strconv.Atoi(value.String)
				if convErr != nil {
					return fmt.Errorf("stored PREF %q: %w", value.String, convErr)
				}
				err = b.SetPref(pref)
			default:
				err = b.PushParameter(key, value.String)
			}
			if err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

func (s *Store) queryFields(ctx context.Context, id int64) (map[string]string, error) {
	fields := make(map[string]string)
	err := s.stmts.run(ctx, selectFieldsSQL, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to query fields: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var field, value string
			if err := rows.Scan(&field, &value); err != nil {
				return fmt.Errorf("failed to scan field: %w", err)
			}
			fields[field] = value
		}
		return rows.Err()
	})
	return fields, err
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	var result []string
	err := s.stmts.run(ctx, query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("failed to query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}
			result = append(result, v)
		}
		return rows.Err()
	})
	return result, err
}

// UIDs returns the identifiers of every stored card, sorted.
func (s *Store) UIDs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, selectUIDsSQL)
}

// UIDsByKind returns the identifiers of the cards of the given KIND, sorted.
func (s *Store) UIDsByKind(ctx context.Context, kind string) ([]string, error) {
	return s.queryStrings(ctx, selectUIDsByKindSQL, kind)
}

// Delete removes the card stored under uid.
func (s *Store) Delete(ctx context.Context, uid string) error {
	var deleted int64
	err := s.stmts.run(ctx, deleteCardSQL, func(stmt *sql.Stmt) error {
		res, err := stmt.ExecContext(ctx, uid)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", uid, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	log.Debugw("deleted card", "uid", uid)
	return nil
}
