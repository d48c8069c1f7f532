package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/store/sqlite"
)

func setupBookService(t *testing.T) (*BookService, *TagService) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := sqlite.Open(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return NewBookService(s, testLogger()), NewTagService(s, testLogger())
}

func createTestBook(t *testing.T, svc *BookService, title string, tags []string) *domain.Book {
	t.Helper()

	book, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title:           title,
		Author:          "Test Author",
		Genre:           "Fiction",
		PublicationYear: 1984,
		Tags:            tags,
	})
	require.NoError(t, err)
	return book
}

func TestCreateBook_WithTags(t *testing.T) {
	svc, _ := setupBookService(t)

	book := createTestBook(t, svc, "Dune", []string{"scifi", "classic"})

	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	require.Len(t, book.Tags, 2)
}

func TestCreateBook_ValidationErrors(t *testing.T) {
	svc, _ := setupBookService(t)
	ctx := context.Background()

	_, err := svc.CreateBook(ctx, CreateBookRequest{Author: "No Title"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.CreateBook(ctx, CreateBookRequest{Title: "No Author"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.CreateBook(ctx, CreateBookRequest{Title: "Dune", Author: "Herbert", PublicationYear: -5})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestGetBook_NotFound(t *testing.T) {
	svc, _ := setupBookService(t)

	_, err := svc.GetBook(context.Background(), "book_missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdateBook_PartialFields(t *testing.T) {
	svc, _ := setupBookService(t)
	ctx := context.Background()

	book := createTestBook(t, svc, "Dune", []string{"scifi"})

	newTitle := "Dune Messiah"
	updated, err := svc.UpdateBook(ctx, book.ID, UpdateBookRequest{Title: &newTitle})
	require.NoError(t, err)

	// Only the title changed; everything else, tags included, is preserved.
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Test Author", updated.Author)
	assert.Equal(t, "Fiction", updated.Genre)
	assert.Equal(t, 1984, updated.PublicationYear)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "scifi", updated.Tags[0].Name)
}

func TestUpdateBook_ReplacesTagsWholesale(t *testing.T) {
	svc, _ := setupBookService(t)
	ctx := context.Background()

	book := createTestBook(t, svc, "Dune", []string{"scifi", "classic"})

	newTags := []string{"epic"}
	updated, err := svc.UpdateBook(ctx, book.ID, UpdateBookRequest{Tags: &newTags})
	require.NoError(t, err)

	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "epic", updated.Tags[0].Name)
}

func TestUpdateBook_EmptyTagsClears(t *testing.T) {
	svc, _ := setupBookService(t)
	ctx := context.Background()

	book := createTestBook(t, svc, "Dune", []string{"scifi"})

	empty := []string{}
	updated, err := svc.UpdateBook(ctx, book.ID, UpdateBookRequest{Tags: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)
}

func TestUpdateBook_NotFound(t *testing.T) {
	svc, _ := setupBookService(t)

	newTitle := "Ghost"
	_, err := svc.UpdateBook(context.Background(), "book_missing", UpdateBookRequest{Title: &newTitle})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	svc, _ := setupBookService(t)
	ctx := context.Background()

	book := createTestBook(t, svc, "Dune", nil)

	require.NoError(t, svc.DeleteBook(ctx, book.ID))

	_, err := svc.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = svc.DeleteBook(ctx, book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestListBooks(t *testing.T) {
	svc, _ := setupBookService(t)

	createTestBook(t, svc, "Hyperion", []string{"scifi"})
	createTestBook(t, svc, "Dune", []string{"scifi"})

	books, err := svc.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Hyperion", books[1].Title)
}

func TestListTags_SharedNamespace(t *testing.T) {
	bookSvc, tagSvc := setupBookService(t)

	createTestBook(t, bookSvc, "Dune", []string{"scifi", "classic"})
	createTestBook(t, bookSvc, "Hyperion", []string{"scifi"})

	tags, err := tagSvc.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "classic", tags[0].Name)
	assert.Equal(t, "scifi", tags[1].Name)
}
