package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// CreateBook inserts a new book without tags.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	row := bookRow{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		Genre:           book.Genre,
		PublicationYear: book.PublicationYear,
		CreatedAt:       book.CreatedAt,
		UpdatedAt:       book.UpdatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// GetBook retrieves a book with its tags eager-loaded.
// Returns store.ErrBookNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	var row bookRow
	err := s.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name ASC")
		}).
		First(&row, "id = ?", bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainBook(&row), nil
}

// ListBooks returns all books with tags eager-loaded, ordered by title.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var rows []bookRow
	err := s.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name ASC")
		}).
		Order("title ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	books := make([]*domain.Book, 0, len(rows))
	for i := range rows {
		books = append(books, toDomainBook(&rows[i]))
	}
	return books, nil
}

// UpdateBook persists changed book fields in a single UPDATE.
// Tags are not touched; use ReplaceBookTags.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	res := s.db.WithContext(ctx).
		Model(&bookRow{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"title":            book.Title,
			"author":           book.Author,
			"genre":            book.Genre,
			"publication_year": book.PublicationYear,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrBookNotFound
	}
	return nil
}

// DeleteBook removes a book and its tag memberships.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := bookRow{ID: bookID}
		if err := tx.Model(&row).Association("Tags").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&bookRow{}, "id = ?", bookID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrBookNotFound
		}
		return nil
	})
}

// ReplaceBookTags replaces the book's tag set wholesale. Existing
// memberships are cleared first, then each trimmed name is found or
// created and attached. The whole swap runs in one transaction so readers
// never observe a partially attached set.
func (s *Store) ReplaceBookTags(ctx context.Context, bookID string, tagNames []string) ([]*domain.Tag, error) {
	var result []*domain.Tag

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book bookRow
		if err := tx.First(&book, "id = ?", bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrBookNotFound
			}
			return err
		}

		if err := tx.Model(&book).Association("Tags").Clear(); err != nil {
			return err
		}

		now := time.Now()
		seen := make(map[string]bool, len(tagNames))
		for _, raw := range tagNames {
			name := strings.TrimSpace(raw)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			tag, err := findOrCreateTag(tx, name, now)
			if err != nil {
				return err
			}
			if err := tx.Model(&book).Association("Tags").Append(tag); err != nil {
				return err
			}
			result = append(result, toDomainTag(tag))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// findOrCreateTag looks a tag up by name, creating it if missing.
// A concurrent create racing on the unique name index is resolved by
// re-reading after a unique violation.
func findOrCreateTag(tx *gorm.DB, name string, now time.Time) (*tagRow, error) {
	var tag tagRow
	err := tx.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, err
	}
	tag = tagRow{ID: tagID, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := tx.Create(&tag).Error; err != nil {
		if isUniqueViolation(err) {
			if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
				return nil, err
			}
			return &tag, nil
		}
		return nil, err
	}
	return &tag, nil
}
