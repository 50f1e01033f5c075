package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"clasharmies.app/internal/domain"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestFindByGoogleIDLoadsRoles(t *testing.T) {
	store, mock := newMock(t)

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`select id, username, .* from users where google_id = \$1`).
		WithArgs("goog-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "google_id", "google_email", "player_tag", "level", "token_version", "created_at",
		}).AddRow(int64(7), "Warrior-7", "goog-1", "w7@example.com", nil, nil, 3, created))
	mock.ExpectQuery(`select role from user_roles`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin").AddRow("user"))

	user, err := store.FindByGoogleID(context.Background(), "goog-1")
	if err != nil {
		t.Fatalf("FindByGoogleID: %v", err)
	}
	if user.TokenVersion != 3 {
		t.Fatalf("token version = %d, want 3", user.TokenVersion)
	}
	if len(user.Roles) != 2 || user.Roles[0] != "admin" {
		t.Fatalf("roles = %v", user.Roles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`select id, username, .* from users where id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "google_id", "google_email", "player_tag", "level", "token_version", "created_at",
		}))

	_, err := store.FindByID(context.Background(), 404)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCreateAssignsDefaultUsernameInTx(t *testing.T) {
	store, mock := newMock(t)

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`insert into users`).
		WithArgs("", "goog-9", "nine@example.com", "", 0, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))
	mock.ExpectExec(`update users set username = \$1 where id = \$2`).
		WithArgs("Warrior-42", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into user_roles`).
		WithArgs(int64(42), "user").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &domain.User{GoogleID: "goog-9", GoogleEmail: "nine@example.com"}
	id, err := store.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
	if user.Username != "Warrior-42" {
		t.Fatalf("username = %q, want Warrior-42", user.Username)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateRollsBackOnRoleInsertFailure(t *testing.T) {
	store, mock := newMock(t)

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`insert into users`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), created))
	mock.ExpectExec(`update users set username`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into user_roles`).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	if _, err := store.Create(context.Background(), &domain.User{GoogleID: "g"}); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBumpTokenVersion(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`update users set token_version = token_version + 1 where id = $1 returning token_version`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(4))

	version, err := store.BumpTokenVersion(context.Background(), 7)
	if err != nil {
		t.Fatalf("BumpTokenVersion: %v", err)
	}
	if version != 4 {
		t.Fatalf("version = %d, want 4", version)
	}
}

func TestBumpTokenVersionUnknownUser(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`update users set token_version`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}))

	if _, err := store.BumpTokenVersion(context.Background(), 99); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestSaveVoteUpserts(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`insert into army_votes`).
		WithArgs(int64(3), int64(7), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SaveVote(context.Background(), 3, 7, 1); err != nil {
		t.Fatalf("SaveVote: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteArmyNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`delete from armies where id = \$1`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), 12); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCommentNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`delete from army_comments where id = \$1`).
		WithArgs(int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteComment(context.Background(), 55); !errors.Is(err, domain.ErrCommentNotFound) {
		t.Fatalf("err = %v, want ErrCommentNotFound", err)
	}
}
