// Package userdb lee y actualiza filas de la tabla de usuarios que cada
// tenant hospeda en su propia base, usando el mapping de columnas del tenant.
package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

var (
	ErrUserNotFound   = errors.New("user not found in tenant database")
	ErrInvalidMapping = errors.New("schema mapping needs id and email columns")
	ErrInvalidTable   = errors.New("invalid user table name")
)

// User es la proyección canónica de una fila del tenant. Los campos opcionales
// quedan vacíos si no están mapeados o son NULL.
type User struct {
	ID       string
	Email    string
	Name     string
	Username string
	Role     string
}

// Client opera sobre exactamente una fila por llamada. No reintenta.
type Client struct {
	db      *sql.DB
	timeout time.Duration
}

// New envuelve el pool del tenant. timeout <= 0 deja el deadline al caller.
func New(db *sql.DB, timeout time.Duration) *Client {
	return &Client{db: db, timeout: timeout}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// GetUserByID selecciona la fila cuyo id mapeado es externalID.
func (c *Client) GetUserByID(ctx context.Context, table string, m repository.AuthSchemaMapping, externalID string) (*User, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	if m.IDColumn == "" || m.EmailColumn == "" {
		return nil, ErrInvalidMapping
	}

	// orden fijo: id, email y luego los opcionales mapeados
	cols := []string{m.IDColumn, m.EmailColumn}
	var targets []*string
	u := &User{}
	targets = append(targets, &u.ID, &u.Email)
	for _, opt := range []struct {
		col string
		dst *string
	}{
		{m.NameColumn, &u.Name},
		{m.UsernameColumn, &u.Username},
		{m.RoleColumn, &u.Role},
	} {
		if opt.col != "" {
			cols = append(cols, opt.col)
			targets = append(targets, opt.dst)
		}
	}

	sel := make([]string, len(cols))
	for i, col := range cols {
		sel[i] = quoteIdent(col) + "::text"
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s::text = $1 LIMIT 1",
		strings.Join(sel, ", "), tbl, quoteIdent(m.IDColumn))

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := c.db.QueryRowContext(ctx, q, externalID).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	for i, ns := range raw {
		*targets[i] = ns.String
	}
	return u, nil
}

// UpdateUserField setea una columna para la fila cuyo id mapeado es externalID.
// Retorna las filas afectadas; 0 no es error.
func (c *Client) UpdateUserField(ctx context.Context, table string, m repository.AuthSchemaMapping, externalID, column string, value any) (int64, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return 0, err
	}
	if m.IDColumn == "" {
		return 0, ErrInvalidMapping
	}
	if strings.TrimSpace(column) == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidMapping)
	}

	q := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s::text = $2",
		tbl, quoteIdent(column), quoteIdent(m.IDColumn))

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.db.ExecContext(ctx, q, value, externalID)
	if err != nil {
		return 0, fmt.Errorf("update user field %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// quoteTable acepta "tabla" o "schema.tabla".
func quoteTable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidTable
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", ErrInvalidTable
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", ErrInvalidTable
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

func quoteIdent(col string) string {
	return pgx.Identifier{col}.Sanitize()
}
