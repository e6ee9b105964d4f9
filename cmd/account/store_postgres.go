package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements account persistence over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
//   - Every mutation is a single statement, so update-by-id is atomic without
//     explicit transactions.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the account store (default "classy").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("account: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("account: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "classy",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("account: nil pool")
	}
	return st, nil
}

// Close is a no-op: the pool belongs to the caller.
func (s *PostgresStore) Close() error { return nil }

// EnsureSchema creates the schema and accounts table if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	accounts := s.table()
	ddl := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %s;

CREATE TABLE IF NOT EXISTS %s (
  id VARCHAR(20) PRIMARY KEY,
  type TEXT NOT NULL,
  name VARCHAR(200) NOT NULL,
  email VARCHAR(254) NOT NULL,
  phone VARCHAR(15) NOT NULL,
  avatar TEXT NOT NULL DEFAULT '',
  auth_hash TEXT NOT NULL,
  public_key TEXT NOT NULL,
  secret_key TEXT NOT NULL,
  session_hash TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

  CONSTRAINT chk_accounts_type CHECK (type IN ('admin', 'student', 'teacher'))
);`, pgx.Identifier{s.schema}.Sanitize(), accounts)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("account: ensure schema: %w", err)
	}
	return nil
}

const pgAccountCols = `id, type, name, email, phone, avatar, auth_hash, public_key, secret_key,
	       session_hash, created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "account.PostgresStore.FindByID"
	if err := s.ready(ctx, op); err != nil {
		return Account{}, err
	}

	a, err := pgScanAccount(s.pool.QueryRow(ctx,
		`SELECT `+pgAccountCols+` FROM `+s.table()+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, ID: id}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (s *PostgresStore) Insert(ctx context.Context, a Account) (Account, error) {
	const op = "account.PostgresStore.Insert"
	if err := s.ready(ctx, op); err != nil {
		return Account{}, err
	}
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}

	out, err := pgScanAccount(s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` (
		     id, type, name, email, phone, avatar, auth_hash, public_key, secret_key,
		     session_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+pgAccountCols,
		a.ID, string(a.Type), a.Name, a.Email, a.Phone, a.Avatar,
		a.AuthHash, a.PublicKey, a.SecretKey, a.SessionHash, a.CreatedAt, now,
	))
	if err != nil {
		if pgIsUniqueViolation(err) {
			return Account{}, ConflictError{Op: op, ID: a.ID}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, u Update) (Account, error) {
	const op = "account.PostgresStore.Update"
	if err := s.ready(ctx, op); err != nil {
		return Account{}, err
	}

	out, err := pgScanAccount(s.pool.QueryRow(ctx,
		`UPDATE `+s.table()+`
		    SET name = COALESCE($2, name),
		        email = COALESCE($3, email),
		        phone = COALESCE($4, phone),
		        avatar = COALESCE($5, avatar),
		        auth_hash = COALESCE($6, auth_hash),
		        public_key = COALESCE($7, public_key),
		        secret_key = COALESCE($8, secret_key),
		        session_hash = CASE WHEN $9::boolean THEN NULL ELSE session_hash END,
		        updated_at = $10
		  WHERE id = $1
		RETURNING `+pgAccountCols,
		id, u.Name, u.Email, u.Phone, u.Avatar, u.AuthHash, u.PublicKey, u.SecretKey,
		u.ClearSession, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, ID: id}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateSessionHash(ctx context.Context, id string, hash *string) error {
	const op = "account.PostgresStore.UpdateSessionHash"
	if err := s.ready(ctx, op); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table()+` SET session_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, ID: id}
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const op = "account.PostgresStore.Delete"
	if err := s.ready(ctx, op); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, ID: id}
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, a Account) (Account, error) {
	const op = "account.PostgresStore.Upsert"
	if err := s.ready(ctx, op); err != nil {
		return Account{}, err
	}
	if a.ID == "" {
		return Account{}, invalid(op, "missing id")
	}

	now := time.Now().UTC()

	// The WHERE on the conflict branch suppresses the row when the existing
	// account has a different type; no row back means conflict.
	out, err := pgScanAccount(s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` AS a (
		     id, type, name, email, phone, avatar, auth_hash, public_key, secret_key,
		     session_hash, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10, $10)
		 ON CONFLICT (id) DO UPDATE
		    SET name = EXCLUDED.name,
		        email = EXCLUDED.email,
		        phone = EXCLUDED.phone,
		        avatar = EXCLUDED.avatar,
		        auth_hash = EXCLUDED.auth_hash,
		        public_key = EXCLUDED.public_key,
		        secret_key = EXCLUDED.secret_key,
		        session_hash = NULL,
		        updated_at = EXCLUDED.updated_at
		  WHERE a.type = EXCLUDED.type
		 RETURNING `+pgAccountCols,
		a.ID, string(a.Type), a.Name, a.Email, a.Phone, a.Avatar,
		a.AuthHash, a.PublicKey, a.SecretKey, now,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ConflictError{Op: op, ID: a.ID}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ---- helpers ----

func (s *PostgresStore) ready(ctx context.Context, op string) error {
	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	return ctx.Err()
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "accounts"}.Sanitize()
}

func pgScanAccount(row pgx.Row) (Account, error) {
	var (
		a       Account
		typ     string
		session *string
	)
	err := row.Scan(
		&a.ID,
		&typ,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.Avatar,
		&a.AuthHash,
		&a.PublicKey,
		&a.SecretKey,
		&session,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	a.Type = Type(typ)
	a.SessionHash = session
	return a, nil
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
