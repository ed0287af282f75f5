package database

import (
	"database/sql"
	"fmt"
)

// RequiredTables lists the tables the repositories expect.
var RequiredTables = []string{
	"users",
	"lessons",
	"exercises",
	"exams",
	"results",
	"chat_messages",
	"game_items",
	"server_sessions",
	"schema_migrations",
}

// RequiredIndexes lists the indexes the hot queries rely on.
var RequiredIndexes = []string{
	"idx_results_user_target",
	"idx_results_status",
	"idx_chat_pair_time",
	"idx_chat_receiver",
	"idx_game_type_level",
}

// SchemaValidator checks a migrated database before the server accepts
// connections.
type SchemaValidator struct {
	db      *sql.DB
	dialect Dialect
}

func NewSchemaValidator(db *sql.DB, dialect Dialect) *SchemaValidator {
	return &SchemaValidator{db: db, dialect: dialect}
}

// Validate runs every check.
func (v *SchemaValidator) Validate() error {
	if err := v.ValidateTablesExist(); err != nil {
		return err
	}
	return v.ValidateIndexes()
}

func (v *SchemaValidator) ValidateTablesExist() error {
	for _, table := range RequiredTables {
		exists, err := v.count(v.dialect.TableExistsQuery(), table)
		if err != nil {
			return fmt.Errorf("error checking table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("required table %s does not exist", table)
		}
	}
	return nil
}

func (v *SchemaValidator) ValidateIndexes() error {
	for _, index := range RequiredIndexes {
		exists, err := v.count(v.dialect.IndexExistsQuery(), index)
		if err != nil {
			return fmt.Errorf("error checking index %s: %w", index, err)
		}
		if !exists {
			return fmt.Errorf("required index %s does not exist", index)
		}
	}
	return nil
}

func (v *SchemaValidator) count(query, name string) (bool, error) {
	var n int
	if err := v.db.QueryRow(query, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
