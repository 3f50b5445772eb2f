package book

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/online-library/internal/infrastructure/store"
)

const AggregateType = "Book"

var (
	ErrBookNotFound = errors.New("book not found")
	ErrInvalidTitle = errors.New("title is required")
	ErrInvalidPrice = errors.New("price must be positive")
)

// Details carries the catalog fields of a book
type Details struct {
	CategoryID  string
	Title       string
	Author      string
	Publisher   string
	Description string
	ISBN        string
	Price       decimal.Decimal
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) Add(ctx context.Context, d Details) (string, error) {
	if d.Title == "" {
		return "", ErrInvalidTitle
	}
	if !d.Price.IsPositive() {
		return "", ErrInvalidPrice
	}

	bookID := uuid.New().String()

	event := BookAdded{
		BookID:      bookID,
		CategoryID:  d.CategoryID,
		Title:       d.Title,
		Author:      d.Author,
		Publisher:   d.Publisher,
		Description: d.Description,
		ISBN:        d.ISBN,
		Price:       d.Price,
		AddedAt:     time.Now(),
	}

	_, err := s.eventStore.Append(ctx, bookID, AggregateType, EventBookAdded, event)
	if err != nil {
		return "", err
	}
	return bookID, nil
}

func (s *Service) Update(ctx context.Context, bookID string, d Details) error {
	if d.Title == "" {
		return ErrInvalidTitle
	}
	if !d.Price.IsPositive() {
		return ErrInvalidPrice
	}

	events := s.eventStore.GetEvents(bookID)
	if len(events) == 0 {
		return ErrBookNotFound
	}

	event := BookUpdated{
		BookID:      bookID,
		CategoryID:  d.CategoryID,
		Title:       d.Title,
		Author:      d.Author,
		Publisher:   d.Publisher,
		Description: d.Description,
		ISBN:        d.ISBN,
		Price:       d.Price,
		UpdatedAt:   time.Now(),
	}

	_, err := s.eventStore.Append(ctx, bookID, AggregateType, EventBookUpdated, event)
	return err
}

func (s *Service) Remove(ctx context.Context, bookID string) error {
	events := s.eventStore.GetEvents(bookID)
	if len(events) == 0 {
		return ErrBookNotFound
	}

	event := BookRemoved{
		BookID:    bookID,
		RemovedAt: time.Now(),
	}

	_, err := s.eventStore.Append(ctx, bookID, AggregateType, EventBookRemoved, event)
	return err
}

// UpdateFiles replaces the cover image and PDF locations of a book
func (s *Service) UpdateFiles(ctx context.Context, bookID, imageURL, pdfURL string) error {
	events := s.eventStore.GetEvents(bookID)
	if len(events) == 0 {
		return ErrBookNotFound
	}

	event := BookFilesUpdated{
		BookID:    bookID,
		ImageURL:  imageURL,
		PDFURL:    pdfURL,
		UpdatedAt: time.Now(),
	}

	_, err := s.eventStore.Append(ctx, bookID, AggregateType, EventBookFilesUpdated, event)
	return err
}
