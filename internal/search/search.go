// Package search keeps an Elasticsearch copy of each user's correction
// history and answers full-text queries over it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/styleguard/styleguard/internal/models"
)

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

type Document struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	OriginalText  string    `json:"original_text"`
	CorrectedText string    `json:"corrected_text"`
	Language      string    `json:"language"`
	CreatedAt     time.Time `json:"created_at"`
}

func DocumentFrom(c *models.Correction) Document {
	return Document{
		ID:            c.ID,
		UserID:        c.UserID,
		OriginalText:  c.OriginalText,
		CorrectedText: c.CorrectedText,
		Language:      c.Language,
		CreatedAt:     c.CreatedAt,
	}
}

func (d Document) Correction() models.Correction {
	return models.Correction{
		ID:            d.ID,
		UserID:        d.UserID,
		OriginalText:  d.OriginalText,
		CorrectedText: d.CorrectedText,
		Language:      d.Language,
		CreatedAt:     d.CreatedAt,
	}
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res.StatusCode, res.Body)
	}

	return NewWithClient(es, cfg.Index), nil
}

func NewWithClient(es *elasticsearch.Client, index string) *Client {
	if index == "" {
		index = "corrections"
	}
	return &Client{es: es, index: index}
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "long"},
      "user_id":        {"type": "long"},
      "original_text":  {"type": "text"},
      "corrected_text": {"type": "text"},
      "language":       {"type": "keyword"},
      "created_at":     {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewBufferString(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.StatusCode, res.Body)
	}
	return nil
}

func (c *Client) IndexCorrection(ctx context.Context, corr *models.Correction) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(DocumentFrom(corr)); err != nil {
		return fmt.Errorf("elasticsearch: encode document: %w", err)
	}

	res, err := c.es.Index(c.index, &buf,
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(docID(corr.ID)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.StatusCode, res.Body)
	}
	return nil
}

// DeleteCorrection treats a missing document as already deleted.
func (c *Client) DeleteCorrection(ctx context.Context, id uint) error {
	res, err := c.es.Delete(c.index, docID(id), c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete", res.StatusCode, res.Body)
	}
	return nil
}

func (c *Client) SearchCorrections(ctx context.Context, userID uint, query string, from, size int) (int64, []models.Correction, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"original_text", "corrected_text^2"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"sort": []any{
			map[string]any{"_score": "desc"},
			map[string]any{"created_at": "desc"},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.StatusCode, res.Body)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode search: %w", err)
	}

	out := make([]models.Correction, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		if hit.Source.UserID != userID {
			continue
		}
		out = append(out, hit.Source.Correction())
	}
	return r.Hits.Total.Value, out, nil
}

var ErrResponse = errors.New("elasticsearch error response")

func responseError(op string, status int, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("%w: %s: status %d: %s", ErrResponse, op, status, bytes.TrimSpace(b))
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
