// Package postgres provides a PostgreSQL MemoryBackend.
//
// Items are stored in a single table keyed by namespace prefix; search is
// lexical, ranked in memory after a prefix-scoped scan. A production
// deployment can layer pgvector search behind the same interface.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// Client implements backend.MemoryBackend on PostgreSQL.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains configuration for creating a PostgreSQL backend.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	SSLMode   string
}

// NewClient creates a new PostgreSQL backend client and initializes the
// memory table if it does not exist.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	table := cfg.TableName
	if table == "" {
		table = "memories"
	}

	client := &Client{db: db, tableName: table}
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
			prefix TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			domain TEXT NOT NULL,
			memory_type TEXT NOT NULL,
			subcategory TEXT,
			content TEXT NOT NULL,
			metadata JSONB,
			importance DOUBLE PRECISION DEFAULT 0.5,
			access_count INTEGER DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			last_accessed_at TIMESTAMPTZ
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_prefix ON %s(prefix text_pattern_ops)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Put inserts a memory item, assigning an ID when the item has none.
func (c *Client) Put(ctx context.Context, item *backend.MemoryItem) (int64, error) {
	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return 0, fmt.Errorf("Put: %w", err)
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ns := item.Namespace
	if item.ID != 0 {
		query := fmt.Sprintf(`
			INSERT INTO %s
			(id, prefix, user_id, role, domain, memory_type, subcategory, content, metadata, importance, access_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, c.tableName)
		_, err = c.db.ExecContext(ctx, query,
			item.ID, ns.Prefix(), ns.UserID, string(ns.Role), string(ns.Domain),
			string(ns.Type), ns.Subcategory, item.Content, string(metadataJSON),
			item.Importance, item.AccessCount, createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("Put: %w", err)
		}
		return item.ID, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(prefix, user_id, role, domain, memory_type, subcategory, content, metadata, importance, access_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, c.tableName)
	var id int64
	err = c.db.QueryRowContext(ctx, query,
		ns.Prefix(), ns.UserID, string(ns.Role), string(ns.Domain),
		string(ns.Type), ns.Subcategory, item.Content, string(metadataJSON),
		item.Importance, item.AccessCount, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Put: %w", err)
	}
	item.ID = id
	return id, nil
}

// Get retrieves an item by namespace and ID.
func (c *Client) Get(ctx context.Context, ns namespace.Namespace, id int64) (*backend.MemoryItem, error) {
	query := fmt.Sprintf(`
		SELECT id, prefix, content, metadata, importance, access_count, created_at, last_accessed_at
		FROM %s
		WHERE id = $1 AND prefix = $2
	`, c.tableName)

	row := c.db.QueryRowContext(ctx, query, id, ns.Prefix())
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get: item %d not found in %s", id, ns.Prefix())
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return item, nil
}

// Search loads items under the namespace prefix and ranks them lexically
// against the query in memory.
func (c *Client) Search(ctx context.Context, namespacePrefix, query string, limit int) ([]*backend.MemoryItem, error) {
	sqlQuery := fmt.Sprintf(`
		SELECT id, prefix, content, metadata, importance, access_count, created_at, last_accessed_at
		FROM %s
		WHERE prefix LIKE $1 || '%%'
		ORDER BY created_at DESC
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, sqlQuery, namespacePrefix)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*backend.MemoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return backend.RankByLexicalScore(items, query, limit), nil
}

// Delete removes an item by namespace and ID.
func (c *Client) Delete(ctx context.Context, ns namespace.Namespace, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND prefix = $2", c.tableName)

	result, err := c.db.ExecContext(ctx, query, id, ns.Prefix())
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Delete: item %d not found in %s", id, ns.Prefix())
	}
	return nil
}

// Touch replays an advisory access onto the stored row.
func (c *Client) Touch(ctx context.Context, ns namespace.Namespace, id int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET access_count = access_count + 1, last_accessed_at = $1
		WHERE id = $2 AND prefix = $3
	`, c.tableName)

	result, err := c.db.ExecContext(ctx, query, time.Now(), id, ns.Prefix())
	if err != nil {
		return fmt.Errorf("Touch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Touch: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Touch: item %d not found in %s", id, ns.Prefix())
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func scanItem(scanner interface{ Scan(...interface{}) error }) (*backend.MemoryItem, error) {
	var item backend.MemoryItem
	var prefix string
	var metadataStr sql.NullString
	var lastAccessedAt sql.NullTime

	err := scanner.Scan(
		&item.ID,
		&prefix,
		&item.Content,
		&metadataStr,
		&item.Importance,
		&item.AccessCount,
		&item.CreatedAt,
		&lastAccessedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Namespace = namespace.Parse(prefix)
	item.Type = item.Namespace.Type

	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &item.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	if lastAccessedAt.Valid {
		item.LastAccessedAt = &lastAccessedAt.Time
	}

	return &item, nil
}
