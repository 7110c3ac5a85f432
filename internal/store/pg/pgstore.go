// Package pg implements the account store on PostgreSQL through the
// database/sql interface with the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"idman.org/internal/identity"
)

// Schema creates the tables the store expects. Idempotent.
const Schema = `
create table if not exists users (
	subject            text primary key,
	username           text not null unique,
	password_hash      text not null default '',
	email              text not null default '',
	email_confirmed    boolean not null default false,
	phone              text not null default '',
	phone_confirmed    boolean not null default false,
	two_factor_enabled boolean not null default false,
	lockout_enabled    boolean not null default true,
	lockout_end        timestamptz,
	created_at         timestamptz not null default now(),
	updated_at         timestamptz not null default now()
);
create table if not exists user_claims (
	subject text not null references users(subject) on delete cascade,
	type    text not null,
	value   text not null
);
create index if not exists user_claims_subject_idx on user_claims(subject);
create table if not exists roles (
	subject     text primary key,
	name        text not null unique,
	description text not null default '',
	created_at  timestamptz not null default now(),
	updated_at  timestamptz not null default now()
);
`

// Store implements identity.Store on PostgreSQL.
type Store struct {
	db   *sql.DB
	caps identity.Capabilities
}

var _ identity.Store = (*Store)(nil)

// Open connects to PostgreSQL and tunes the pool.
func Open(dsn string, caps identity.Capabilities) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db, caps: caps}, nil
}

// NewWithDB wraps an existing connection (used by tests).
func NewWithDB(db *sql.DB, caps identity.Capabilities) *Store {
	return &Store{db: db, caps: caps}
}

func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema applies the schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *Store) Capabilities() identity.Capabilities { return s.caps }

func (s *Store) Users(context.Context) identity.UserStore { return &userStore{db: s.db} }

func (s *Store) Roles(context.Context) identity.RoleStore {
	if !s.caps.Roles {
		return nil
	}
	return &roleStore{db: s.db}
}

// storeErr maps constraint violations onto StoreError descriptions so the
// facade surfaces them verbatim; anything else passes through.
func storeErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return identity.NewStoreError("Username is already taken.")
		case "roles_name_key":
			return identity.NewStoreError("Role name is already taken.")
		case "users_pkey", "roles_pkey":
			return identity.NewStoreError("Subject already exists.")
		}
		return identity.NewStoreError("Unique constraint violated.")
	}
	return err
}

type userStore struct{ db *sql.DB }

const userColumns = `subject, username, password_hash, email, email_confirmed,
	phone, phone_confirmed, two_factor_enabled, lockout_enabled, lockout_end,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*identity.User, error) {
	var (
		u          identity.User
		lockoutEnd sql.NullTime
	)
	if err := row.Scan(
		&u.Subject, &u.Username, &u.PasswordHash, &u.Email, &u.EmailConfirmed,
		&u.Phone, &u.PhoneConfirmed, &u.TwoFactorEnabled, &u.LockoutEnabled,
		&lockoutEnd, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lockoutEnd.Valid {
		u.LockoutEnd = lockoutEnd.Time
	}
	return &u, nil
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (s *userStore) Create(ctx context.Context, u *identity.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users(subject, username, password_hash, email, email_confirmed,
			phone, phone_confirmed, two_factor_enabled, lockout_enabled, lockout_end,
			created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		u.Subject, u.Username, u.PasswordHash, u.Email, u.EmailConfirmed,
		u.Phone, u.PhoneConfirmed, u.TwoFactorEnabled, u.LockoutEnabled,
		nullableTime(u.LockoutEnd), u.CreatedAt, u.UpdatedAt,
	)
	return storeErr(err)
}

func (s *userStore) Find(ctx context.Context, subject string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where subject=$1`, subject)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userStore) Update(ctx context.Context, u *identity.User) error {
	res, err := s.db.ExecContext(ctx, `
		update users set username=$2, password_hash=$3, email=$4, email_confirmed=$5,
			phone=$6, phone_confirmed=$7, two_factor_enabled=$8, lockout_enabled=$9,
			lockout_end=$10, updated_at=$11
		where subject=$1`,
		u.Subject, u.Username, u.PasswordHash, u.Email, u.EmailConfirmed,
		u.Phone, u.PhoneConfirmed, u.TwoFactorEnabled, u.LockoutEnabled,
		nullableTime(u.LockoutEnd), u.UpdatedAt,
	)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, subject string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where subject=$1`, subject)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *userStore) List(ctx context.Context) ([]*identity.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by username asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *userStore) Claims(ctx context.Context, subject string) ([]identity.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`select type, value from user_claims where subject=$1 order by type, value`, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identity.Claim
	for rows.Next() {
		var c identity.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *userStore) AddClaim(ctx context.Context, subject string, claim identity.Claim) error {
	_, err := s.db.ExecContext(ctx,
		`insert into user_claims(subject, type, value) values ($1,$2,$3)`,
		subject, claim.Type, claim.Value)
	return storeErr(err)
}

func (s *userStore) RemoveClaim(ctx context.Context, subject string, claim identity.Claim) error {
	_, err := s.db.ExecContext(ctx,
		`delete from user_claims where subject=$1 and type=$2 and value=$3`,
		subject, claim.Type, claim.Value)
	return err
}

type roleStore struct{ db *sql.DB }

func (s *roleStore) Create(ctx context.Context, r *identity.Role) error {
	_, err := s.db.ExecContext(ctx, `
		insert into roles(subject, name, description, created_at, updated_at)
		values ($1,$2,$3,$4,$5)`,
		r.Subject, r.Name, r.Description, r.CreatedAt, r.UpdatedAt)
	return storeErr(err)
}

func (s *roleStore) Find(ctx context.Context, subject string) (*identity.Role, error) {
	var r identity.Role
	err := s.db.QueryRowContext(ctx,
		`select subject, name, description, created_at, updated_at from roles where subject=$1`,
		subject,
	).Scan(&r.Subject, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *roleStore) Update(ctx context.Context, r *identity.Role) error {
	res, err := s.db.ExecContext(ctx,
		`update roles set name=$2, description=$3, updated_at=$4 where subject=$1`,
		r.Subject, r.Name, r.Description, r.UpdatedAt)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *roleStore) Delete(ctx context.Context, subject string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where subject=$1`, subject)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *roleStore) List(ctx context.Context) ([]*identity.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select subject, name, description, created_at, updated_at from roles order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*identity.Role
	for rows.Next() {
		var r identity.Role
		if err := rows.Scan(&r.Subject, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
