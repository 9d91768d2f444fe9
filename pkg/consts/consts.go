package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// DefaultConfigFile is the config file looked up when --config is not given
	DefaultConfigFile = "groundskeeper.yaml"

	// DefaultMigrationsDir is the project-relative migrations directory
	DefaultMigrationsDir = "db/migrations"

	// DefaultCatalogFile is where the last resolved catalog order is persisted
	DefaultCatalogFile = "db/migrations.order"

	// PackageMigrationsDir is the migrations directory relative to the executable
	PackageMigrationsDir = "migrations"

	// DefaultDriver is the database/sql driver used when none is configured
	DefaultDriver = "postgres"

	// BaseSchemaID identifies the synthetic status entry for the original schema
	BaseSchemaID = "base"
)

// Environment variables read by the CLI.
const (
	EnvConfig        = "GROUNDSKEEPER_CONFIG"
	EnvDSN           = "GROUNDSKEEPER_DSN"
	EnvDriver        = "GROUNDSKEEPER_DRIVER"
	EnvMigrationsDir = "GROUNDSKEEPER_MIGRATIONS_DIR"
)
