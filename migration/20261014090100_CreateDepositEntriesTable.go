package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up20261014090100, Down20261014090100)
}

func Up20261014090100(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS deposit_entries (
		id bigint unsigned NOT NULL AUTO_INCREMENT,
		deposit_address_id varchar(36) NOT NULL,
		tx_hash varchar(100) NOT NULL,
		amount varchar(100) NOT NULL,
		gas_fee varchar(100) NOT NULL,
		timestamp timestamp NULL,
		processed boolean NOT NULL DEFAULT false,

		PRIMARY KEY (id),
		CONSTRAINT uix_deposit_entries_tx_hash UNIQUE (tx_hash),
		INDEX idx_deposit_entries_deposit_address_id (deposit_address_id),
		CONSTRAINT fk_deposit_entries_deposit_address FOREIGN KEY (deposit_address_id) REFERENCES deposit_addresses (id))`)
	return err
}

func Down20261014090100(tx *sql.Tx) error {
	_, err := tx.Exec("DROP TABLE IF EXISTS deposit_entries;")
	return err
}
