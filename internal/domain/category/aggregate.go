package category

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/online-library/internal/infrastructure/store"
)

const AggregateType = "Category"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidName      = errors.New("name is required")
)

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) Create(ctx context.Context, name, description string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}

	categoryID := uuid.New().String()

	event := CategoryCreated{
		CategoryID:  categoryID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}

	_, err := s.eventStore.Append(ctx, categoryID, AggregateType, EventCategoryCreated, event)
	if err != nil {
		return "", err
	}
	return categoryID, nil
}

// live reports whether the category exists and has not been deleted.
func (s *Service) live(categoryID string) error {
	events := s.eventStore.GetEvents(categoryID)
	if len(events) == 0 {
		return ErrCategoryNotFound
	}
	for _, e := range events {
		if e.EventType == EventCategoryDeleted {
			return ErrCategoryNotFound
		}
	}
	return nil
}

func (s *Service) Update(ctx context.Context, categoryID, name, description string) error {
	if name == "" {
		return ErrInvalidName
	}

	if err := s.live(categoryID); err != nil {
		return err
	}

	event := CategoryUpdated{
		CategoryID:  categoryID,
		Name:        name,
		Description: description,
		UpdatedAt:   time.Now(),
	}

	_, err := s.eventStore.Append(ctx, categoryID, AggregateType, EventCategoryUpdated, event)
	return err
}

func (s *Service) Delete(ctx context.Context, categoryID string) error {
	if err := s.live(categoryID); err != nil {
		return err
	}

	event := CategoryDeleted{
		CategoryID: categoryID,
		DeletedAt:  time.Now(),
	}

	_, err := s.eventStore.Append(ctx, categoryID, AggregateType, EventCategoryDeleted, event)
	return err
}
