package history

import (
	"context"
	"strings"

	"filmrental/internal/domain"
	"filmrental/internal/repository"
)

const defaultPageSize = 50

type Service struct {
	store *repository.Store
}

func NewService(store *repository.Store) *Service {
	return &Service{store: store}
}

type Page struct {
	Items    []domain.ChangeHistoryEntry `json:"items"`
	Total    int64                       `json:"total"`
	Page     int                         `json:"page"`
	PageSize int                         `json:"page_size"`
}

func (s *Service) List(ctx context.Context, f repository.HistoryFilter) (*Page, error) {
	if f.TargetType != "" && !f.TargetType.Valid() {
		return nil, domain.Validationf("unknown target type %q", f.TargetType)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = defaultPageSize
	}
	items, total, err := s.store.History.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Batch expands every entry written by one bulk operation.
func (s *Service) Batch(ctx context.Context, batchID string) ([]domain.ChangeHistoryEntry, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, domain.Validationf("batch id is required")
	}
	items, _, err := s.store.History.List(ctx, repository.HistoryFilter{BatchID: batchID})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.NotFoundf("batch %s", batchID)
	}
	return items, nil
}
