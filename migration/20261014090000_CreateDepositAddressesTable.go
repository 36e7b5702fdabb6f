package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up20261014090000, Down20261014090000)
}

func Up20261014090000(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS deposit_addresses (
		id varchar(36) NOT NULL,
		payment_id varchar(100) NOT NULL,
		network varchar(20) NOT NULL,
		currency varchar(20) NOT NULL,
		currency_group varchar(20) NOT NULL,
		wallet_address varchar(100) NOT NULL,
		derivation_path varchar(100) NOT NULL,
		derivation_index bigint NOT NULL,
		requested_amount varchar(100) NOT NULL,
		estimated_gas_fee varchar(100) NOT NULL,
		total_requested varchar(100) NOT NULL,
		prefund_tx_hash varchar(100),
		last_checked timestamp NULL,
		expires_at timestamp NULL,
		created_at timestamp NULL,
		updated_at timestamp NULL,
		deleted_at timestamp NULL,

		PRIMARY KEY (id),
		CONSTRAINT uix_deposit_addresses_payment_id UNIQUE (payment_id),
		CONSTRAINT uix_deposit_addresses_wallet_address UNIQUE (wallet_address),
		CONSTRAINT uix_deposit_addresses_derivation UNIQUE (network, currency_group, derivation_index),
		INDEX idx_deposit_addresses_expires_at (expires_at),
		INDEX idx_deposit_addresses_deleted_at (deleted_at))`)
	return err
}

func Down20261014090000(tx *sql.Tx) error {
	_, err := tx.Exec("DROP TABLE IF EXISTS deposit_addresses;")
	return err
}
