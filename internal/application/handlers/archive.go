package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/services"
)

// Display defaults used by the archive and home views.
const (
	DefaultTrendingLimit = 6
	DefaultFeaturedLimit = 3
)

// ArchiveHandler serves read-side use cases over the entry archive.
type ArchiveHandler struct {
	repo *services.ContentRepository
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(repo *services.ContentRepository) *ArchiveHandler {
	return &ArchiveHandler{
		repo: repo,
	}
}

// EntryListResult contains filtered entries.
type EntryListResult struct {
	Category string           `json:"category"`
	Query    string           `json:"query"`
	Entries  []entities.Entry `json:"entries"`
	Total    int              `json:"total"`
}

// HandleList returns entries matching category and query, newest first.
func (h *ArchiveHandler) HandleList(ctx context.Context, category, query string) (*EntryListResult, error) {
	if category == "" {
		category = services.CategoryAll
	}

	entries, err := h.repo.FilterEntries(ctx, category, query)
	if err != nil {
		return nil, fmt.Errorf("filtering entries: %w", err)
	}
	SortNewestFirst(entries)

	return &EntryListResult{
		Category: category,
		Query:    query,
		Entries:  entries,
		Total:    len(entries),
	}, nil
}

// EntryDetail is an entry opened for reading.
type EntryDetail struct {
	Entry entities.Entry `json:"entry"`
	Views int            `json:"views"`
}

// HandleShow returns an entry and records the view. It returns nil when
// the entry does not exist.
func (h *ArchiveHandler) HandleShow(ctx context.Context, entryID string) (*EntryDetail, error) {
	entry, err := h.repo.FindEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("finding entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	views, err := h.repo.RecordView(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("recording view: %w", err)
	}

	return &EntryDetail{Entry: *entry, Views: views}, nil
}

// HandleCategories returns the distinct entry categories.
func (h *ArchiveHandler) HandleCategories(ctx context.Context) ([]string, error) {
	cats, err := h.repo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// HandleTrending returns the most used tags across all entries.
func (h *ArchiveHandler) HandleTrending(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}

	entries, err := h.repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return services.TopTags(entries, limit), nil
}

// HandleFeatured returns the first entries in storage order.
func (h *ArchiveHandler) HandleFeatured(ctx context.Context, limit int) ([]entities.Entry, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}

	entries, err := h.repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// SortNewestFirst orders entries by creation time, newest first.
func SortNewestFirst(entries []entities.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
