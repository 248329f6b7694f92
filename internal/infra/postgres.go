package infra

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"vinatravel/internal/config"
	"vinatravel/internal/models/db_models"
)

func InitPostgresql(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is not set")
	}

	logLevel := gormlogger.Warn
	if cfg.App.IsProduction() {
		logLevel = gormlogger.Error
	}

	connectionPool, err := gorm.Open(postgres.Open(cfg.Database.PostgresURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Printf("Error connecting to database: %v", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := Migrate(connectionPool, cfg.Embedding.Dimensions); err != nil {
			return nil, err
		}
	}
	return connectionPool, nil
}

// Migrate enables pgvector and creates the partner place and vector index tables.
func Migrate(db *gorm.DB, dimensions int) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&db_models.PartnerPlace{}); err != nil {
		return fmt.Errorf("migrate partner_places: %w", err)
	}
	if err := db.AutoMigrate(&db_models.PartnerPlaceVector{}); err != nil {
		return fmt.Errorf("migrate partner_place_vectors: %w", err)
	}

	// The embedding column is declared without a size; pin it so the HNSW index can be built.
	stmts := []string{
		fmt.Sprintf("ALTER TABLE partner_place_vectors ALTER COLUMN embedding TYPE vector(%d)", dimensions),
		"CREATE INDEX IF NOT EXISTS idx_partner_place_vectors_embedding ON partner_place_vectors USING hnsw (embedding vector_cosine_ops)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("prepare vector index: %w", err)
		}
	}
	log.Println("PostgreSQL schema migrated")
	return nil
}

func ClosePostgresql(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting database instance: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("PostgreSQL database connection closed successfully")
	}
}
