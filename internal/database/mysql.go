package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// documentsSchema stores every collection in one table; the JSON body holds
// the document including its "_id".
const documentsSchema = `CREATE TABLE IF NOT EXISTS documents (
	seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	collection VARCHAR(64) NOT NULL,
	id CHAR(24) NOT NULL,
	body JSON NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_documents_collection_id (collection, id)
)`

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = name
	cfg.ParseTime = true // DATETIME -> time.Time
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MySQLStore keeps documents as JSON rows. Filters compare top-level fields
// with JSON_EXTRACT; writes that read first run inside a transaction.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// Migrate creates the documents table when missing.
func (s *MySQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	return nil
}

func (s *MySQLStore) Collection(name string) repository.Collection {
	return &mysqlCollection{s: s, name: name}
}

type sqlTxKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *MySQLStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *MySQLStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *MySQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *MySQLStore) Close(context.Context) error { return s.db.Close() }

type mysqlCollection struct {
	s    *MySQLStore
	name string
}

// where renders the filter as a WHERE clause scoped to the collection.
func (c *mysqlCollection) where(f repository.Filter) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{c.name}
	for _, k := range sortedKeys(f) {
		if k == repository.IDField {
			clauses = append(clauses, "id = ?")
		} else {
			clauses = append(clauses, "JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ?")
			args = append(args, `$."`+k+`"`)
		}
		args = append(args, fmt.Sprint(f[k]))
	}
	return strings.Join(clauses, " AND "), args
}

func (c *mysqlCollection) FindOne(ctx context.Context, f repository.Filter, out any) error {
	where, args := c.where(f)
	var body []byte
	err := c.s.q(ctx).QueryRowContext(ctx,
		"SELECT body FROM documents WHERE "+where+" ORDER BY seq ASC LIMIT 1", args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *mysqlCollection) Find(ctx context.Context, f repository.Filter, opts repository.FindOptions, out any) error {
	where, args := c.where(f)
	query := "SELECT body FROM documents WHERE " + where + " ORDER BY seq DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	rows, err := c.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return err
		}
		docs = append(docs, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return decodeDocs(docs, out)
}

func (c *mysqlCollection) insert(ctx context.Context, doc map[string]any) (string, error) {
	id := docID(doc)
	doc[repository.IDField] = id
	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	_, err = c.s.q(ctx).ExecContext(ctx,
		"INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)", c.name, id, body)
	return id, err
}

func (c *mysqlCollection) InsertOne(ctx context.Context, v any) (repository.InsertResult, error) {
	doc, err := toDoc(v)
	if err != nil {
		return repository.InsertResult{}, err
	}
	id, err := c.insert(ctx, doc)
	if err != nil {
		return repository.InsertResult{}, err
	}
	return repository.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (c *mysqlCollection) UpdateOne(ctx context.Context, f repository.Filter, set map[string]any, upsert bool) (repository.UpdateResult, error) {
	fields, err := toDoc(set)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	var res repository.UpdateResult
	err = c.s.WithTx(ctx, func(ctx context.Context) error {
		where, args := c.where(f)
		var (
			id   string
			body []byte
		)
		err := c.s.q(ctx).QueryRowContext(ctx,
			"SELECT id, body FROM documents WHERE "+where+" ORDER BY seq ASC LIMIT 1 FOR UPDATE", args...).Scan(&id, &body)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res = repository.UpdateResult{Acknowledged: true}
			if !upsert {
				return nil
			}
			doc, err := toDoc(map[string]any(f))
			if err != nil {
				return err
			}
			for k, v := range fields {
				doc[k] = v
			}
			newID, err := c.insert(ctx, doc)
			if err != nil {
				return err
			}
			res.UpsertedCount = 1
			res.UpsertedID = newID
			return nil
		case err != nil:
			return err
		}

		doc := map[string]any{}
		if err := json.Unmarshal(body, &doc); err != nil {
			return fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		before, _ := json.Marshal(doc)
		for k, v := range fields {
			if k != repository.IDField {
				doc[k] = v
			}
		}
		after, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		res = repository.UpdateResult{Acknowledged: true, MatchedCount: 1}
		if string(before) == string(after) {
			return nil
		}
		if _, err := c.s.q(ctx).ExecContext(ctx,
			"UPDATE documents SET body = ? WHERE collection = ? AND id = ?", after, c.name, id); err != nil {
			return err
		}
		res.ModifiedCount = 1
		return nil
	})
	if err != nil {
		return repository.UpdateResult{}, err
	}
	return res, nil
}

func (c *mysqlCollection) DeleteOne(ctx context.Context, f repository.Filter) (repository.DeleteResult, error) {
	where, args := c.where(f)
	r, err := c.s.q(ctx).ExecContext(ctx,
		"DELETE FROM documents WHERE "+where+" ORDER BY seq ASC LIMIT 1", args...)
	if err != nil {
		return repository.DeleteResult{}, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return repository.DeleteResult{}, err
	}
	return repository.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}
