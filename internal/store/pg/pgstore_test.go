package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"idman.org/internal/identity"
)

var userCols = []string{
	"subject", "username", "password_hash", "email", "email_confirmed",
	"phone", "phone_confirmed", "two_factor_enabled", "lockout_enabled",
	"lockout_end", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewWithDB(db, identity.AllCapabilities()), mock
}

func TestFindUserNotFound(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery(`select .+ from users where subject=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := s.Users(ctx).Find(ctx, "missing")
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindUserScansLockout(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	end := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`select .+ from users where subject=\$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u1", "alice", "hash", "a@x.com", true,
			"", false, false, true, end, now, now,
		))

	u, err := s.Users(ctx).Find(ctx, "u1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !u.LockoutEnd.Equal(end) || !u.Locked(now) {
		t.Fatalf("lockout not scanned: %+v", u)
	}
}

func TestCreateUserUniqueViolation(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`insert into users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := s.Users(ctx).Create(ctx, &identity.User{Subject: "u1", Username: "alice"})
	var serr *identity.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if len(serr.Descriptions) != 1 || serr.Descriptions[0] != "Username is already taken." {
		t.Fatalf("unexpected descriptions: %v", serr.Descriptions)
	}
}

func TestCreateUserNullsZeroLockoutEnd(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	u := &identity.User{Subject: "u1", Username: "alice", CreatedAt: now, UpdatedAt: now}
	mock.ExpectExec(`insert into users`).
		WithArgs("u1", "alice", "", "", false, "", false, false, false,
			nullableTime(time.Time{}), now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Users(ctx).Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`update users set`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Users(ctx).Update(ctx, &identity.User{Subject: "missing", Username: "x"})
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`delete from users where subject=\$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Users(ctx).Delete(ctx, "missing")
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersOrdersByUsername(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`select .+ from users order by username asc`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "alice", "", "", false, "", false, false, true, nil, now, now).
			AddRow("u2", "bob", "", "", false, "", false, false, true, nil, now, now))

	out, err := s.Users(ctx).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 || out[0].Username != "alice" || out[1].Username != "bob" {
		t.Fatalf("unexpected listing: %+v", out)
	}
	if !out[0].LockoutEnd.IsZero() {
		t.Fatalf("null lockout_end must scan to zero time: %+v", out[0])
	}
}

func TestClaimsQuery(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery(`select type, value from user_claims where subject=\$1 order by type, value`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"type", "value"}).
			AddRow("department", "ops").
			AddRow("name", "Alice"))

	claims, err := s.Users(ctx).Claims(ctx, "u1")
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if len(claims) != 2 || claims[1] != (identity.Claim{Type: "name", Value: "Alice"}) {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestRemoveClaim(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`delete from user_claims where subject=\$1 and type=\$2 and value=\$3`).
		WithArgs("u1", "department", "ops").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Users(ctx).RemoveClaim(ctx, "u1", identity.Claim{Type: "department", Value: "ops"})
	if err != nil {
		t.Fatalf("RemoveClaim: %v", err)
	}
}

func TestRoleUniqueViolation(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec(`insert into roles`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "roles_name_key"})

	err := s.Roles(ctx).Create(ctx, &identity.Role{Subject: "r1", Name: "admin"})
	var serr *identity.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if serr.Descriptions[0] != "Role name is already taken." {
		t.Fatalf("unexpected descriptions: %v", serr.Descriptions)
	}
}

func TestRolesGatedByCapability(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	_ = mock

	caps := identity.AllCapabilities()
	caps.Roles = false
	if NewWithDB(db, caps).Roles(context.Background()) != nil {
		t.Fatalf("role store offered without the capability")
	}
}

func TestStoreErrPassthrough(t *testing.T) {
	sentinel := errors.New("connection reset")
	if got := storeErr(sentinel); !errors.Is(got, sentinel) {
		t.Fatalf("non-constraint error rewritten: %v", got)
	}
	if got := storeErr(nil); got != nil {
		t.Fatalf("nil error rewritten: %v", got)
	}
	var serr *identity.StoreError
	got := storeErr(&pgconn.PgError{Code: "23505", ConstraintName: "something_else"})
	if !errors.As(got, &serr) || serr.Descriptions[0] != "Unique constraint violated." {
		t.Fatalf("fallback mapping wrong: %v", got)
	}
}
