package handler

import (
	"log/slog"
	"net/http"

	"clobdeck/internal/domain"
)

// BookSource is the read side the book handler needs from the session.
type BookSource interface {
	Book(assetID string) (domain.Book, bool)
	Books() []domain.Book
}

// BookHandler serves aggregated orderbook snapshots.
type BookHandler struct {
	books  BookSource
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler reading from the given source.
func NewBookHandler(books BookSource, logger *slog.Logger) *BookHandler {
	return &BookHandler{books: books, logger: logger}
}

// ListBooks returns the latest book for every tracked asset.
// GET /api/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books := h.books.Books()
	if books == nil {
		books = []domain.Book{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

// GetBook returns the latest book for one asset.
// GET /api/books/{asset}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("asset")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "missing asset id")
		return
	}
	book, ok := h.books.Book(assetID)
	if !ok {
		writeError(w, http.StatusNotFound, "no book for asset")
		return
	}
	writeJSON(w, http.StatusOK, book)
}
