package repositories

import (
	"context"
	"testing"

	"shuttle/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestStateRepository_LoadMissingKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT payload, revision FROM local_state").
		WithArgs(KeyBookings).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "revision"}))

	payload, rev, err := StateRepository{DB: db}.Load(context.Background(), KeyBookings)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if payload != nil || rev != 0 {
		t.Fatalf("expected empty state, got %q rev=%d", payload, rev)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateRepository_SaveGuardsRevision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE local_state SET payload").
		WithArgs(`[]`, sqlmock.AnyArg(), KeyBookings, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE local_state SET payload").
		WithArgs(`[]`, sqlmock.AnyArg(), KeyBookings, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := StateRepository{DB: db}
	rev, err := repo.Save(context.Background(), KeyBookings, []byte(`[]`), 4)
	if err != nil || rev != 5 {
		t.Fatalf("expected rev 5, got %d err=%v", rev, err)
	}
	if _, err := repo.Save(context.Background(), KeyBookings, []byte(`[]`), 4); !domain.IsConflict(err) {
		t.Fatalf("expected conflict on stale revision, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateRepository_FirstSaveDuplicateIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO local_state").
		WithArgs(KeyBookings, `[]`, sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = StateRepository{DB: db}.Save(context.Background(), KeyBookings, []byte(`[]`), 0)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStateRepository_EnsureSchemaCreatesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("information_schema\\.tables").
		WithArgs(stateTable).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS local_state").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (StateRepository{DB: db}).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateRepository_EnsureSchemaAddsRevisionColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("information_schema\\.tables").
		WithArgs(stateTable).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow(stateTable))
	mock.ExpectQuery("information_schema\\.columns").
		WithArgs(stateTable, "revision").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectExec("ALTER TABLE local_state ADD COLUMN revision").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (StateRepository{DB: db}).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
