package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up20261014090300, Down20261014090300)
}

func Up20261014090300(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS watched_addresses (
		id varchar(36) NOT NULL,
		address varchar(100) NOT NULL,
		network varchar(20) NOT NULL,
		currency varchar(20) NOT NULL,
		deposit_address_id varchar(36) NOT NULL,
		worker_id varchar(100),
		active boolean NOT NULL DEFAULT false,
		registered_at timestamp NULL,
		deregistered_at timestamp NULL,
		reason varchar(50),
		created_at timestamp NULL,
		updated_at timestamp NULL,
		deleted_at timestamp NULL,

		PRIMARY KEY (id),
		CONSTRAINT uix_watched_addresses_address UNIQUE (address),
		INDEX idx_watched_addresses_worker (worker_id, active))`)
	return err
}

func Down20261014090300(tx *sql.Tx) error {
	_, err := tx.Exec("DROP TABLE IF EXISTS watched_addresses;")
	return err
}
