// Package sqlite provides GORM-backed SQLite persistence for the BookHaven server.
package sqlite

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// Store provides SQLite-backed persistence via GORM.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Interface check.
var _ store.Store = (*Store)(nil)

// userRow is the GORM model backing domain.User.
// AuthToken and TokenExpiresAt are pointers so a signed-out user stores
// NULL; the unique index on auth_token tolerates any number of NULLs.
type userRow struct {
	ID             string  `gorm:"primaryKey"`
	Email          string  `gorm:"not null"`
	EmailLower     string  `gorm:"uniqueIndex;not null"`
	PasswordHash   string  `gorm:"not null"`
	AuthToken      *string `gorm:"uniqueIndex"`
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName sets the SQL table name for userRow.
func (userRow) TableName() string { return "users" }

// bookRow is the GORM model backing domain.Book.
type bookRow struct {
	ID              string `gorm:"primaryKey"`
	Title           string `gorm:"not null"`
	Author          string `gorm:"not null"`
	Genre           string
	PublicationYear int
	Tags            []tagRow `gorm:"many2many:book_tags;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName sets the SQL table name for bookRow.
func (bookRow) TableName() string { return "books" }

// tagRow is the GORM model backing domain.Tag.
type tagRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the SQL table name for tagRow.
func (tagRow) TableName() string { return "tags" }

// Open creates a new SQLite store at the given path.
// It enables WAL mode and foreign keys and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&userRow{}, &tagRow{}, &bookRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueViolation reports whether err is a unique constraint failure.
// GORM's sqlite driver translates these to ErrDuplicatedKey; the string
// check covers driver versions that don't.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// normalizeEmail lowercases and trims an email for the uniqueness column.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// toDomainUser converts a userRow to the domain model.
func toDomainUser(r *userRow) *domain.User {
	return &domain.User{
		ID:             r.ID,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		AuthToken:      r.AuthToken,
		TokenExpiresAt: r.TokenExpiresAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// toDomainTag converts a tagRow to the domain model.
func toDomainTag(r *tagRow) *domain.Tag {
	return &domain.Tag{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// toDomainBook converts a bookRow (with preloaded tags) to the domain model.
func toDomainBook(r *bookRow) *domain.Book {
	b := &domain.Book{
		ID:              r.ID,
		Title:           r.Title,
		Author:          r.Author,
		Genre:           r.Genre,
		PublicationYear: r.PublicationYear,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for i := range r.Tags {
		b.Tags = append(b.Tags, toDomainTag(&r.Tags[i]))
	}
	return b
}
