package bindings

import (
	"context"
	"database/sql"
)

// PostgresDirectory reads from the extension_bindings table.
// Assumes UNIQUE (extension, user_email).
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) ActiveForExtension(ctx context.Context, extension string) ([]Binding, error) {
	const q = `
SELECT extension, user_email, zoho_user_id, active, created_at
FROM extension_bindings
WHERE extension = $1 AND active = TRUE
`
	return d.query(ctx, q, extension)
}

func (d *PostgresDirectory) ListAll(ctx context.Context) ([]Binding, error) {
	const q = `
SELECT extension, user_email, zoho_user_id, active, created_at
FROM extension_bindings
ORDER BY extension, user_email
`
	return d.query(ctx, q)
}

func (d *PostgresDirectory) query(ctx context.Context, q string, args ...any) ([]Binding, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Binding{}
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.Extension, &b.UserEmail, &b.ZohoUserID, &b.Active, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
