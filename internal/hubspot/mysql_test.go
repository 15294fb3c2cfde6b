package hubspot

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/gtmskills/internal/apperr"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(sqlx.NewDb(db, "mysql")), mock
}

func TestMySQLUpsert(t *testing.T) {
	s, mock := newMockStore(t)
	exp := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	name := "acme.hubspot.com"

	mock.ExpectExec(`INSERT INTO hubspot_connections .* ON DUPLICATE KEY UPDATE`).
		WithArgs(int64(555), int64(42), name, nil, "AT1", "RT1", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Upsert(context.Background(), &Connection{
		PortalID: 555, UserID: 42, PortalName: &name,
		AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: exp,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMySQLGetActive(t *testing.T) {
	s, mock := newMockStore(t)
	exp := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM hubspot_connections\s+WHERE portal_id = \? AND is_active = 1`).
		WithArgs(int64(555)).
		WillReturnRows(sqlmock.NewRows([]string{"portal_id", "user_id", "portal_name", "user_email",
			"access_token", "refresh_token", "expires_at", "is_active", "created_at", "updated_at"}).
			AddRow(555, 42, nil, "ops@acme.test", "AT1", "RT1", exp, true, exp, exp))
	mock.ExpectQuery(`FROM hubspot_connections`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	c, err := s.GetActive(context.Background(), 555)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if c.PortalName != nil || c.UserEmail == nil || *c.UserEmail != "ops@acme.test" || !c.IsActive {
		t.Fatalf("unexpected row: %+v", c)
	}

	if _, err := s.GetActive(context.Background(), 9); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMySQLUpdateTokensAndDeactivate(t *testing.T) {
	s, mock := newMockStore(t)
	exp := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE hubspot_connections\s+SET access_token = \?, refresh_token = \?, expires_at = \?`).
		WithArgs("AT2", "RT2", exp, int64(555)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE hubspot_connections SET is_active = 0 WHERE portal_id = \?`).
		WithArgs(int64(555)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE hubspot_connections SET is_active = 0`).
		WithArgs(int64(555)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.UpdateTokens(context.Background(), 555, "AT2", "RT2", exp); err != nil {
		t.Fatalf("UpdateTokens: %v", err)
	}
	if ok, err := s.Deactivate(context.Background(), 555); err != nil || !ok {
		t.Fatalf("Deactivate = %v, %v", ok, err)
	}
	if ok, err := s.Deactivate(context.Background(), 555); err != nil || ok {
		t.Fatalf("second Deactivate = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMySQLListActive(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT portal_id, portal_name, user_email, is_active, created_at AS connected_at\s+FROM hubspot_connections\s+WHERE is_active = 1\s+ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"portal_id", "portal_name", "user_email", "is_active", "connected_at"}).
			AddRow(556, "beta.hubspot.com", nil, true, at.Add(time.Hour)).
			AddRow(555, nil, nil, true, at))

	list, err := s.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(list) != 2 || list[0].PortalID != 556 || list[1].ConnectedAt != at {
		t.Fatalf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
