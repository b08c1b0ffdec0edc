// Package postgres provides a PostgreSQL implementation of the usersync.UserStore
// interface using pgx connection pooling.
//
// Expected table:
//
//	CREATE TABLE users (
//	    id                 TEXT PRIMARY KEY,
//	    email              TEXT,
//	    phone              TEXT,
//	    username           TEXT,
//	    first_name         TEXT,
//	    last_name          TEXT,
//	    full_name          TEXT,
//	    stripe_customer_id TEXT,
//	    is_subscribed      BOOLEAN NOT NULL DEFAULT FALSE,
//	    stripe_plan_id     TEXT,
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihaimyh/usersync/pkg/usersync"
)

const defaultTable = "users"

// selectColumns is the column list every read uses. Optional text columns
// are coalesced so rows scan into plain strings.
const selectColumns = `id, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(username, ''),
	COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(full_name, ''),
	COALESCE(stripe_customer_id, ''), COALESCE(is_subscribed, FALSE),
	COALESCE(stripe_plan_id, ''), created_at, updated_at`

// writableColumns is the allow-list for dynamically built INSERT/UPDATE
// statements. Field names outside this set never reach the SQL text.
var writableColumns = map[string]bool{
	usersync.FieldID:               true,
	usersync.FieldEmail:            true,
	usersync.FieldPhone:            true,
	usersync.FieldUsername:         true,
	usersync.FieldFirstName:        true,
	usersync.FieldLastName:         true,
	usersync.FieldFullName:         true,
	usersync.FieldStripeCustomerID: true,
	usersync.FieldIsSubscribed:     true,
	usersync.FieldStripePlanID:     true,
}

// Store implements usersync.UserStore using PostgreSQL
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// Config holds PostgreSQL store configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Table is the table holding user records. Default: "users"
	Table string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Table:           defaultTable,
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL store adapter
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if config.Table == "" {
		config.Table = defaultTable
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool, table: config.Table}, nil
}

// Close closes the PostgreSQL connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Insert implements usersync.UserStore
func (s *Store) Insert(ctx context.Context, fields usersync.Fields) (*usersync.UserRecord, error) {
	data := usersync.SerializeFields(fields)

	if data.String(usersync.FieldID) == "" {
		return nil, usersync.NewStoreError(s.table, "insert", usersync.ErrMissingUserID)
	}

	now := time.Now().UTC()
	data[usersync.FieldCreatedAt] = now
	data[usersync.FieldUpdatedAt] = now

	columns := make([]string, 0, len(data))
	for key := range data {
		if writableColumns[key] || key == usersync.FieldCreatedAt || key == usersync.FieldUpdatedAt {
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = data[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.table, joinColumns(columns), joinColumns(placeholders), selectColumns,
	)

	rec, err := s.scanRow(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, usersync.NewStoreError(s.table, "insert", err)
	}
	return rec, nil
}

// Update implements usersync.UserStore
func (s *Store) Update(ctx context.Context, id string, fields usersync.Fields) (*usersync.UserRecord, error) {
	data := usersync.SerializeFields(fields)
	delete(data, usersync.FieldID)
	delete(data, usersync.FieldCreatedAt)
	data[usersync.FieldUpdatedAt] = time.Now().UTC()

	columns := make([]string, 0, len(data))
	for key := range data {
		if writableColumns[key] || key == usersync.FieldUpdatedAt {
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)

	assignments := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, data[col])
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		s.table, joinColumns(assignments), len(columns)+1, selectColumns,
	)

	rec, err := s.scanRow(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, usersync.NewStoreError(s.table, "update", err)
	}
	return rec, nil
}

// GetByID implements usersync.UserStore
func (s *Store) GetByID(ctx context.Context, id string) (*usersync.UserRecord, error) {
	return s.getByColumn(ctx, usersync.FieldID, id)
}

// GetAll implements usersync.UserStore
func (s *Store) GetAll(ctx context.Context) ([]*usersync.UserRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", selectColumns, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, usersync.NewStoreError(s.table, "get_all", err)
	}
	defer rows.Close()

	var records []*usersync.UserRecord
	for rows.Next() {
		rec, err := s.scanRow(rows)
		if err != nil {
			return nil, usersync.NewStoreError(s.table, "get_all", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, usersync.NewStoreError(s.table, "get_all", err)
	}
	return records, nil
}

// Delete implements usersync.UserStore
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table)

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, usersync.NewStoreError(s.table, "delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByEmail implements usersync.UserStore
func (s *Store) GetByEmail(ctx context.Context, email string) (*usersync.UserRecord, error) {
	return s.getByColumn(ctx, usersync.FieldEmail, email)
}

// GetByStripeCustomerID implements usersync.UserStore
func (s *Store) GetByStripeCustomerID(ctx context.Context, customerID string) (*usersync.UserRecord, error) {
	return s.getByColumn(ctx, usersync.FieldStripeCustomerID, customerID)
}

// UpdateStripeInfo implements usersync.UserStore
func (s *Store) UpdateStripeInfo(ctx context.Context, userID string, fields usersync.Fields) (*usersync.UserRecord, error) {
	return s.Update(ctx, userID, usersync.StripeInfoFields(fields))
}

func (s *Store) getByColumn(ctx context.Context, column, value string) (*usersync.UserRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 LIMIT 1", selectColumns, s.table, column)

	rec, err := s.scanRow(s.pool.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, usersync.NewStoreError(s.table, "get", err)
	}
	return rec, nil
}

func (s *Store) scanRow(row pgx.Row) (*usersync.UserRecord, error) {
	var rec usersync.UserRecord
	err := row.Scan(
		&rec.ID, &rec.Email, &rec.Phone, &rec.Username,
		&rec.FirstName, &rec.LastName, &rec.FullName,
		&rec.StripeCustomerID, &rec.IsSubscribed,
		&rec.StripePlanID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
