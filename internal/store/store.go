// Package store defines the persistence interface for the BookHaven server.
// Implementations live in subpackages; see store/sqlite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// Sentinel errors returned by Store implementations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrBookNotFound = errors.New("book not found")
	ErrTagNotFound  = errors.New("tag not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrTokenExists  = errors.New("authentication token already exists")
)

// Store is the persistence interface consumed by the service layer.
// Implementations must enforce uniqueness on user email and auth token
// columns and provide atomic single-row updates; no cross-user
// transactions are required.
type Store interface {
	UserStore
	BookStore
	TagStore

	// Close releases the underlying database resources.
	Close() error
}

// UserStore persists user accounts and their token lifecycle fields.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrEmailExists on duplicate email.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByEmail retrieves a user by email (case-insensitive).
	// Returns ErrUserNotFound if no user matches.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetUserByToken retrieves the user whose stored auth token equals the
	// given value. Returns ErrUserNotFound if no user matches. Expiry is
	// not checked here; that is the authenticator's job.
	GetUserByToken(ctx context.Context, token string) (*domain.User, error)

	// HasToken reports whether any user currently stores the given token.
	// Used for collision checks during token issuance.
	HasToken(ctx context.Context, token string) (bool, error)

	// SetAuthToken writes the token and expiry columns for one user in a
	// single UPDATE, bypassing unrelated field validations. Both columns
	// always move together. Returns ErrTokenExists on a token collision
	// and ErrUserNotFound if the user row is gone.
	SetAuthToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// ClearAuthToken nulls the token and expiry columns for one user in a
	// single UPDATE. Idempotent.
	ClearAuthToken(ctx context.Context, userID string) error

	// SweepExpiredTokens bulk-clears token and expiry for every user whose
	// expiry is strictly before now. Returns the number of rows cleared.
	// Idempotent and safe to run concurrently with authentication.
	SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// BookStore persists the book catalog.
type BookStore interface {
	// CreateBook inserts a new book without tags.
	CreateBook(ctx context.Context, book *domain.Book) error

	// GetBook retrieves a book with its tags eager-loaded.
	// Returns ErrBookNotFound if the book does not exist.
	GetBook(ctx context.Context, bookID string) (*domain.Book, error)

	// ListBooks returns all books with tags eager-loaded, ordered by title.
	ListBooks(ctx context.Context) ([]*domain.Book, error)

	// UpdateBook persists changed book fields. Tags are not touched;
	// use ReplaceBookTags. Returns ErrBookNotFound for unknown books.
	UpdateBook(ctx context.Context, book *domain.Book) error

	// DeleteBook removes a book and its tag memberships.
	// Returns ErrBookNotFound for unknown books.
	DeleteBook(ctx context.Context, bookID string) error

	// ReplaceBookTags replaces the book's tag set wholesale: existing
	// memberships are cleared, then each name is found-or-created and
	// attached. Names are trimmed; blanks are skipped. Returns the
	// resulting tag set.
	ReplaceBookTags(ctx context.Context, bookID string, tagNames []string) ([]*domain.Tag, error)
}

// TagStore reads the shared tag namespace.
type TagStore interface {
	// ListTags returns all tags ordered by name.
	ListTags(ctx context.Context) ([]*domain.Tag, error)
}
