package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up20261014090200, Down20261014090200)
}

// Up20261014090200 also seeds each group's sequence past the highest index already issued
func Up20261014090200(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS derivation_sequences (
		id varchar(36) NOT NULL,
		network varchar(20) NOT NULL,
		currency_group varchar(20) NOT NULL,
		next_index bigint NOT NULL,
		created_at timestamp NULL,
		updated_at timestamp NULL,
		deleted_at timestamp NULL,

		PRIMARY KEY (id),
		CONSTRAINT uix_derivation_sequences_group UNIQUE (network, currency_group))`); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO derivation_sequences (id, network, currency_group, next_index, created_at, updated_at)
		SELECT UUID(), network, currency_group, MAX(derivation_index) + 1, NOW(), NOW()
		FROM deposit_addresses GROUP BY network, currency_group`)
	return err
}

func Down20261014090200(tx *sql.Tx) error {
	_, err := tx.Exec("DROP TABLE IF EXISTS derivation_sequences;")
	return err
}
