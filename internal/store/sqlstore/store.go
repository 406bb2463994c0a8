package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrSnakeDoc/banners/internal/domain"
)

// RecordRow is the persisted form of a record. One table holds every
// collection.
type RecordRow struct {
	Collection     string    `gorm:"primaryKey;size:64"`
	ID             string    `gorm:"primaryKey;size:64"`
	Label          string    `gorm:"size:120"`
	Link           string    `gorm:"size:2048"`
	ImageReference string    `gorm:"size:2048"`
	CreatedAt      time.Time `gorm:"index"` // set on first insert only, drives list order
	UpdatedAt      time.Time
}

func (RecordRow) TableName() string { return "banner_records" }

// Store is a document store over gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported document store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&RecordRow{}); err != nil {
		return fmt.Errorf("auto-migrate banner_records: %w", err)
	}
	return nil
}

// ListDocuments returns a collection's rows, most recently created first.
// Edits keep a row's place.
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]domain.Document, error) {
	var rows []RecordRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at DESC").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(rows))
	for _, r := range rows {
		fields := map[string]any{}
		setIf(fields, "label", r.Label)
		setIf(fields, "link", r.Link)
		setIf(fields, "imageReference", r.ImageReference)
		docs = append(docs, domain.Document{ID: r.ID, Fields: fields})
	}
	return docs, nil
}

// UpsertDocument creates or replaces the row keyed by (collection, id).
// created_at is left alone on replace.
func (s *Store) UpsertDocument(ctx context.Context, collection string, rec domain.Record) error {
	row := RecordRow{
		Collection:     collection,
		ID:             rec.ID(),
		Label:          rec.Label(),
		Link:           rec.Link(),
		ImageReference: rec.ImageReference(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "link", "image_reference", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", rec.ID(), err)
	}
	return nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func setIf(m map[string]any, key, val string) {
	if val != "" {
		m[key] = val
	}
}
