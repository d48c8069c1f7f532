package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// BookService handles the book catalog and its tag memberships.
type BookService struct {
	store  store.Store
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store store.Store, logger *slog.Logger) *BookService {
	return &BookService{
		store:  store,
		logger: logger,
	}
}

// CreateBookRequest contains the fields for a new book.
type CreateBookRequest struct {
	Title           string   `json:"title" validate:"required,max=500"`
	Author          string   `json:"author" validate:"required,max=500"`
	Genre           string   `json:"genre,omitempty" validate:"omitempty,max=100"`
	PublicationYear int      `json:"publication_year,omitempty" validate:"omitempty,gte=0"`
	Tags            []string `json:"tags,omitempty"`
}

// UpdateBookRequest contains optional fields for a partial update.
// Nil fields are left unchanged; a non-nil Tags slice replaces the tag set
// wholesale, including an empty slice which clears it.
type UpdateBookRequest struct {
	Title           *string   `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Author          *string   `json:"author,omitempty" validate:"omitempty,min=1,max=500"`
	Genre           *string   `json:"genre,omitempty" validate:"omitempty,max=100"`
	PublicationYear *int      `json:"publication_year,omitempty" validate:"omitempty,gte=0"`
	Tags            *[]string `json:"tags,omitempty"`
}

// ListBooks returns all books with their tags.
func (s *BookService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook returns one book with its tags.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if domainerrors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// CreateBook validates and persists a new book, attaching tags by name.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		ID:              bookID,
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
	}
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	if len(req.Tags) > 0 {
		tags, err := s.store.ReplaceBookTags(ctx, book.ID, req.Tags)
		if err != nil {
			return nil, fmt.Errorf("attach tags: %w", err)
		}
		book.Tags = tags
	}

	if s.logger != nil {
		s.logger.Info("Book created", "book_id", book.ID, "title", book.Title)
	}

	return book, nil
}

// UpdateBook applies a partial update. When the request carries a tag
// list, the book's tag set is cleared and reattached from scratch rather
// than diffed.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if domainerrors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Genre != nil {
		book.Genre = *req.Genre
	}
	if req.PublicationYear != nil {
		book.PublicationYear = *req.PublicationYear
	}
	book.Touch()

	if err := s.store.UpdateBook(ctx, book); err != nil {
		if domainerrors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	if req.Tags != nil {
		tags, err := s.store.ReplaceBookTags(ctx, book.ID, *req.Tags)
		if err != nil {
			return nil, fmt.Errorf("replace tags: %w", err)
		}
		book.Tags = tags
	}

	return book, nil
}

// DeleteBook removes a book and its tag memberships.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		if domainerrors.Is(err, store.ErrBookNotFound) {
			return domainerrors.NotFound("book not found")
		}
		return fmt.Errorf("delete book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Book deleted", "book_id", bookID)
	}
	return nil
}
