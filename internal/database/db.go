package database

import (
	"fmt"
	"os"
	"strings"

	"srh_chat_go_backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options selects the storage engine. Postgres is assembled from the DB_*
// variables when DSN is empty; sqlite uses SQLitePath.
type Options struct {
	Driver     string
	DSN        string
	SQLitePath string
	LogSQL     bool
}

// OptionsFromEnv reads DB_DRIVER, DB_HOST, DB_USER, DB_PASSWORD, DB_NAME,
// DB_PORT and SQLITE_PATH.
func OptionsFromEnv() Options {
	opts := Options{
		Driver:     os.Getenv("DB_DRIVER"),
		SQLitePath: os.Getenv("SQLITE_PATH"),
		LogSQL:     os.Getenv("DB_LOG_SQL") == "true",
	}
	if opts.Driver == "" {
		opts.Driver = "postgres"
	}
	if opts.Driver == "postgres" {
		opts.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}
	if opts.SQLitePath == "" {
		opts.SQLitePath = "srh_chat.db"
	}
	return opts
}

// Open connects without migrating.
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if opts.LogSQL {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "sqlite":
		dialector = sqlite.Open(withForeignKeys(opts.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// sqlite only enforces foreign keys per connection, so the pragma rides on
// the DSN.
func withForeignKeys(path string) string {
	if strings.Contains(path, "_foreign_keys") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

// Migrate creates the schema plus the partial unique index that keeps one
// active session per user.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Session{},
		&models.Message{},
		&models.Feedback{},
		&models.Classification{},
		&models.Emotion{},
		&models.RiskAssessment{},
		&models.MythAssessment{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_user ON sessions (user_id) WHERE is_active").Error
}

func InitDB() {
	opts := OptionsFromEnv()

	var err error
	DB, err = Open(opts)
	if err != nil {
		log.Fatal().Err(err).Str("driver", opts.Driver).Msg("Failed to connect to database")
	}

	if err = Migrate(DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to auto migrate")
	}
	log.Info().Str("driver", opts.Driver).Msg("Database ready")
}
