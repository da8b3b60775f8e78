// Package search keeps a searchable directory of registered users in
// Elasticsearch. The credential store stays the source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"

	"github.com/oksasatya/scopeguard/internal/domain/entity"
)

const (
	defaultSize = 10
	maxSize     = 50
	// callTimeout applies when the directory is built without one.
	callTimeout = 3 * time.Second
)

type UserDirectory struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
}

// NewUserDirectory bounds every call by timeout; zero means callTimeout.
func NewUserDirectory(es *elasticsearch.Client, index string, timeout time.Duration) *UserDirectory {
	if timeout <= 0 {
		timeout = callTimeout
	}
	return &UserDirectory{es: es, index: index, timeout: timeout}
}

type userDoc struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	IsActive  bool     `json:"is_active"`
	Scopes    []string `json:"scopes"`
	CreatedAt string   `json:"created_at"`
}

// IndexUser upserts p under its user id.
func (d *UserDirectory) IndexUser(ctx context.Context, p *entity.UserProfile) error {
	b, err := json.Marshal(userDoc{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		IsActive:  p.IsActive,
		Scopes:    p.Scopes,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	c, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req := esapi.IndexRequest{Index: d.index, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(c, d.es)
	if err != nil {
		return errors.Wrap(err, "es index")
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// SearchUsers runs a multi_match over email and full name. size is clamped to
// [1, 50] with 10 as the default.
func (d *UserDirectory) SearchUsers(ctx context.Context, q string, size int) ([]entity.UserProfile, error) {
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "full_name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.es.Search(
		d.es.Search.WithContext(c),
		d.es.Search.WithIndex(d.index),
		d.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "es search")
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source userDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "decode es response")
	}

	out := make([]entity.UserProfile, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		created, _ := time.Parse(time.RFC3339Nano, h.Source.CreatedAt)
		out = append(out, entity.UserProfile{
			ID:        h.Source.ID,
			Email:     h.Source.Email,
			FullName:  h.Source.FullName,
			IsActive:  h.Source.IsActive,
			Scopes:    h.Source.Scopes,
			CreatedAt: created,
		})
	}
	return out, nil
}
