// Package dbtest opens throwaway SQLite databases carrying the service schema
// so repositories and services can be exercised without Postgres.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS admin_users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'admin',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS members (
  id TEXT PRIMARY KEY,
  memberstack_id TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT,
  referred_by_ambassador_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS pets (
  id TEXT PRIMARY KEY,
  member_id TEXT NOT NULL,
  name TEXT NOT NULL,
  species TEXT NOT NULL,
  breed TEXT NOT NULL,
  breed_size TEXT NOT NULL,
  birth_date DATETIME,
  ruac TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  admin_notes TEXT,
  photo_url TEXT,
  photo2_url TEXT,
  vet_certificate_url TEXT,
  appeal_message TEXT,
  appeal_count INTEGER NOT NULL DEFAULT 0 CHECK (appeal_count BETWEEN 0 AND 2),
  appealed_at DATETIME,
  last_admin_response TEXT,
  last_admin_response_at DATETIME,
  reviewed_by TEXT,
  reviewed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS pet_appeal_logs (
  id TEXT PRIMARY KEY,
  pet_id TEXT NOT NULL,
  author_type TEXT NOT NULL,
  author_id TEXT,
  message TEXT NOT NULL,
  seq INTEGER,
  created_at DATETIME
);`, `
CREATE TRIGGER IF NOT EXISTS trg_pet_appeal_logs_seq AFTER INSERT ON pet_appeal_logs
BEGIN
  UPDATE pet_appeal_logs SET seq = NEW.rowid WHERE rowid = NEW.rowid;
END;`, `
CREATE TABLE IF NOT EXISTS ambassadors (
  id TEXT PRIMARY KEY,
  member_id TEXT,
  first_name TEXT NOT NULL,
  paternal_surname TEXT NOT NULL,
  maternal_surname TEXT,
  email TEXT NOT NULL UNIQUE,
  phone TEXT NOT NULL,
  birth_date DATETIME,
  curp TEXT NOT NULL UNIQUE,
  rfc TEXT UNIQUE,
  street TEXT,
  city TEXT,
  state TEXT,
  postal_code TEXT,
  ine_front_url TEXT,
  ine_back_url TEXT,
  bank_name TEXT,
  clabe TEXT,
  social_media TEXT,
  motivation TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  rejection_reason TEXT,
  referral_code TEXT UNIQUE,
  commission_percentage TEXT NOT NULL DEFAULT '10',
  linked_memberstack_id TEXT,
  reviewed_by TEXT,
  reviewed_at DATETIME,
  approved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS referrals (
  id TEXT PRIMARY KEY,
  ambassador_id TEXT NOT NULL,
  referred_member_id TEXT NOT NULL UNIQUE,
  referral_code TEXT NOT NULL,
  membership_plan TEXT,
  commission_status TEXT NOT NULL DEFAULT 'pending',
  membership_amount TEXT NOT NULL DEFAULT '0',
  commission_amount TEXT NOT NULL DEFAULT '0',
  approved_by TEXT,
  approved_at DATETIME,
  paid_at DATETIME,
  cancelled_at DATETIME,
  payout_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS ambassador_payouts (
  id TEXT PRIMARY KEY,
  ambassador_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_reference TEXT,
  failure_reason TEXT,
  processed_by TEXT,
  processed_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS comm_templates (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  channel TEXT NOT NULL,
  subject TEXT,
  body TEXT NOT NULL,
  "trigger" TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS comm_logs (
  id TEXT PRIMARY KEY,
  template_id TEXT,
  member_id TEXT,
  channel TEXT NOT NULL,
  recipient TEXT NOT NULL,
  subject TEXT,
  content TEXT NOT NULL,
  status TEXT NOT NULL,
  error_message TEXT,
  provider_id TEXT,
  actor TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS legal_documents (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  file_url TEXT NOT NULL,
  target_audience TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  uploaded_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  member_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`, `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a private in-memory database with every service table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// OpenClient wraps Open in the db.Client used by services.
func OpenClient(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromGorm(conn), conn
}
