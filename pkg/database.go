package pkg

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/examforge/exam-service/internal/config"
	"github.com/examforge/exam-service/internal/models"
)

// InitDatabase opens the Postgres connection, tunes the pool and runs
// schema migration
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Environment == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Topic{},
		&models.Question{},
		&models.QuestionOption{},
		&models.Blueprint{},
		&models.BlueprintRule{},
		&models.Exam{},
		&models.ExamSection{},
		&models.ExamQuestion{},
		&models.ExamAttempt{},
		&models.SectionAttempt{},
		&models.QuestionAnswer{},
		&models.UserScore{},
		&models.SectionScore{},
		&models.TopicScore{},
	)
}
