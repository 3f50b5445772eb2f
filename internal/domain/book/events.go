package book

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventBookAdded        = "BookAdded"
	EventBookUpdated      = "BookUpdated"
	EventBookRemoved      = "BookRemoved"
	EventBookFilesUpdated = "BookFilesUpdated"
)

type BookAdded struct {
	BookID      string          `json:"book_id"`
	CategoryID  string          `json:"category_id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Publisher   string          `json:"publisher"`
	Description string          `json:"description"`
	ISBN        string          `json:"isbn"`
	Price       decimal.Decimal `json:"price"`
	AddedAt     time.Time       `json:"added_at"`
}

type BookUpdated struct {
	BookID      string          `json:"book_id"`
	CategoryID  string          `json:"category_id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Publisher   string          `json:"publisher"`
	Description string          `json:"description"`
	ISBN        string          `json:"isbn"`
	Price       decimal.Decimal `json:"price"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type BookRemoved struct {
	BookID    string    `json:"book_id"`
	RemovedAt time.Time `json:"removed_at"`
}

// BookFilesUpdated is emitted when the cover image or PDF of a book changes
type BookFilesUpdated struct {
	BookID    string    `json:"book_id"`
	ImageURL  string    `json:"image_url"`
	PDFURL    string    `json:"pdf_url"`
	UpdatedAt time.Time `json:"updated_at"`
}
