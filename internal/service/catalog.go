package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/models"
	"github.com/Skotchmaster/herb_shop/internal/repo"
	"github.com/Skotchmaster/herb_shop/internal/util"
)

type HerbSeed struct {
	Title       string
	Description string
	Price       int64
}

var DefaultCatalog = []HerbSeed{
	{Title: "Chamomile", Description: "Calming flower tea for the evening", Price: 11},
	{Title: "Lavender", Description: "Fragrant buds for tea and sachets", Price: 9},
	{Title: "Peppermint", Description: "Cooling leaf, good after meals", Price: 7},
	{Title: "Lemon Balm", Description: "Bright lemony leaf for cordials", Price: 8},
	{Title: "Echinacea", Description: "Coneflower root and herb blend", Price: 12},
	{Title: "Hibiscus", Description: "Tart red calyces for iced tea", Price: 10},
	{Title: "Rosemary", Description: "Resinous culinary needles", Price: 6},
	{Title: "Sage", Description: "Savory leaf for cooking and smudging", Price: 6},
	{Title: "Thyme", Description: "Small leaved kitchen classic", Price: 5},
	{Title: "Calendula", Description: "Golden petals for salves and tea", Price: 9},
}

// SearchIndex is the full text backend. When nil, search runs as a SQL LIKE query.
type SearchIndex interface {
	Search(ctx context.Context, query string, from, size int) (int64, []models.Herb, error)
	IndexHerbs(ctx context.Context, herbs []models.Herb) error
}

type CatalogService struct {
	Repo  *repo.GormRepo
	Index SearchIndex
}

type SearchResult struct {
	Items []models.Herb `json:"data"`
	Meta  util.PageMeta `json:"meta"`
}

func (s *CatalogService) PriceOf(ctx context.Context, title string) (int64, error) {
	herb, err := s.Repo.HerbByTitle(ctx, title)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("herb %q: %w", title, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return herb.Price, nil
}

func (s *CatalogService) List(ctx context.Context) ([]models.Herb, error) {
	return s.Repo.ListHerbs(ctx)
}

func (s *CatalogService) SetPrice(ctx context.Context, title string, price int64) (*models.Herb, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.set_price")

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}
	if price < 0 {
		return nil, fmt.Errorf("price must not be negative: %w", ErrValidation)
	}

	herb, err := s.Repo.SetHerbPrice(ctx, title, price)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("herb %q: %w", title, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	l.Info("price_set", "title", herb.Title, "price", herb.Price, "version", herb.Version)
	s.reindex(ctx, []models.Herb{*herb})
	return herb, nil
}

// Seed inserts missing titles and re-prices changed ones. It reports how many
// herbs were created or re-priced.
func (s *CatalogService) Seed(ctx context.Context, herbs []HerbSeed) (int, error) {
	changed := 0
	touched := make([]models.Herb, 0, len(herbs))
	for _, h := range herbs {
		if h.Price < 0 {
			return changed, fmt.Errorf("herb %q price must not be negative: %w", h.Title, ErrValidation)
		}
		herb, ok, err := s.Repo.UpsertHerb(ctx, h.Title, h.Description, h.Price)
		if err != nil {
			return changed, fmt.Errorf("seed %q: %w", h.Title, err)
		}
		if ok {
			changed++
		}
		touched = append(touched, *herb)
	}

	s.reindex(ctx, touched)
	return changed, nil
}

func (s *CatalogService) Search(ctx context.Context, q string, page, size int) (*SearchResult, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("query is required: %w", ErrValidation)
	}
	offset, limit := util.Calculate(page, size)

	var (
		total int64
		items []models.Herb
		err   error
	)
	if s.Index != nil {
		total, items, err = s.Index.Search(ctx, q, offset, limit)
		if err != nil {
			l.Warn("search_index_failed", "reason", "falling back to sql", "error", err)
		}
	}
	if s.Index == nil || err != nil {
		total, items, err = s.Repo.SearchHerbs(ctx, q, offset, limit)
		if err != nil {
			return nil, err
		}
	}

	return &SearchResult{Items: items, Meta: util.Meta(page, offset, limit, total)}, nil
}

func (s *CatalogService) reindex(ctx context.Context, herbs []models.Herb) {
	if s.Index == nil || len(herbs) == 0 {
		return
	}
	if err := s.Index.IndexHerbs(ctx, herbs); err != nil {
		logging.FromContext(ctx).Warn("search_reindex_failed", "count", len(herbs), "error", err)
	}
}
