package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/herb_shop/internal/config"
	"github.com/Skotchmaster/herb_shop/internal/models"
)

type Index struct {
	es   *elasticsearch.Client
	name string
}

// NewClient connects and checks the cluster answers before returning.
func NewClient(ctx context.Context, cfg config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ESURL},
		Username:  cfg.ESUser,
		Password:  cfg.ESPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}
	return client, nil
}

func New(es *elasticsearch.Client, name string) *Index {
	return &Index{es: es, name: name}
}

type herbDoc struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Version     int    `json:"version"`
}

// IndexHerbs upserts one document per herb, keyed by the herb id.
func (i *Index) IndexHerbs(ctx context.Context, herbs []models.Herb) error {
	for _, h := range herbs {
		body, err := json.Marshal(herbDoc{
			ID:          h.ID,
			Title:       h.Title,
			Description: h.Description,
			Price:       h.Price,
			Version:     h.Version,
		})
		if err != nil {
			return err
		}

		res, err := i.es.Index(i.name, bytes.NewReader(body),
			i.es.Index.WithContext(ctx),
			i.es.Index.WithDocumentID(strconv.FormatUint(uint64(h.ID), 10)),
			i.es.Index.WithRefresh("true"),
		)
		if err != nil {
			return fmt.Errorf("elasticsearch: index %q: %w", h.Title, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch: index %q: %s", h.Title, res.Status())
		}
	}
	return nil
}

func (i *Index) Search(ctx context.Context, query string, from, size int) (int64, []models.Herb, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: encode query: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.name),
		i.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("elasticsearch: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source herbDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode: %w", err)
	}

	herbs := make([]models.Herb, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		herbs[n] = models.Herb{
			ID:          hit.Source.ID,
			Title:       hit.Source.Title,
			Description: hit.Source.Description,
			Price:       hit.Source.Price,
			Version:     hit.Source.Version,
		}
	}
	return r.Hits.Total.Value, herbs, nil
}
