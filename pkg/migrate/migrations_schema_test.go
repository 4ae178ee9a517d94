package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clubpataamiga/pataamiga-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsContainExpectedStatements(t *testing.T) {
	cases := map[string][]string{
		"create_enum_types": {
			"CREATE TYPE pet_status AS ENUM ('pending', 'approved', 'rejected', 'action_required', 'appealed')",
			"CREATE TYPE ambassador_status AS ENUM ('pending', 'approved', 'rejected', 'suspended')",
			"CREATE TYPE appeal_author_type AS ENUM",
			"CREATE TYPE admin_role AS ENUM ('admin', 'super_admin')",
		},
		"create_pets_tables": {
			"CREATE TABLE IF NOT EXISTS pets",
			"CREATE TABLE IF NOT EXISTS pet_appeal_logs",
			"CHECK (appeal_count BETWEEN 0 AND 2)",
			"CREATE INDEX IF NOT EXISTS idx_pets_status_created_at",
		},
		"create_ambassadors_table": {
			"CONSTRAINT uq_ambassadors_email UNIQUE (email)",
			"CONSTRAINT uq_ambassadors_curp UNIQUE (curp)",
			"CONSTRAINT uq_ambassadors_rfc UNIQUE (rfc)",
			"CONSTRAINT uq_ambassadors_referral_code UNIQUE (referral_code)",
		},
		"create_referrals_tables": {
			"CONSTRAINT uq_referrals_referred_member UNIQUE (referred_member_id)",
			"CREATE TABLE IF NOT EXISTS ambassador_payouts",
			"CHECK (amount > 0)",
		},
		"link_referrals_to_payouts": {
			"ADD COLUMN IF NOT EXISTS payout_id uuid REFERENCES ambassador_payouts(id)",
		},
		"sequence_pet_appeal_logs": {
			"ADD COLUMN IF NOT EXISTS seq bigint GENERATED ALWAYS AS IDENTITY",
		},
		"create_communications_tables": {
			"CREATE TABLE IF NOT EXISTS comm_templates",
			"CREATE TABLE IF NOT EXISTS comm_logs",
			"CREATE TRIGGER trg_comm_logs_immutable",
		},
		"create_outbox_tables": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"idx_outbox_events_unpublished",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.Validate(migrate.Embedded()); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}
