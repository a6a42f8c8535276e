package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cardboard/internal/model"
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// CreatePage inserts a new page with a fresh ID.
func (s Store) CreatePage(ctx context.Context, title string) (model.Page, error) {
	now := time.Now().UTC()
	p := model.Page{ID: model.NewPageID(), Title: strings.TrimSpace(title), CreatedAt: now, UpdatedAt: now}
	if err := s.SavePage(ctx, p); err != nil {
		return model.Page{}, err
	}
	return p, nil
}

// EnsurePage returns pageID, creating an empty page with that ID if needed.
func (s Store) EnsurePage(ctx context.Context, pageID, title string) (model.Page, error) {
	p, err := s.LoadPage(ctx, pageID)
	if err == nil {
		return p, nil
	}
	var nf NotFoundError
	if !errors.As(err, &nf) {
		return model.Page{}, err
	}
	now := time.Now().UTC()
	p = model.Page{ID: strings.TrimSpace(pageID), Title: strings.TrimSpace(title), CreatedAt: now, UpdatedAt: now}
	if err := s.SavePage(ctx, p); err != nil {
		return model.Page{}, err
	}
	return p, nil
}

func (s Store) LoadPage(ctx context.Context, pageID string) (model.Page, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return model.Page{}, errors.New("load page: missing page id")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Page{}, err
	}
	defer db.Close()

	var raw string
	err = db.QueryRowContext(ctx, `SELECT json FROM pages WHERE id = ?`, pageID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Page{}, NotFoundError{Kind: "page", ID: pageID}
	}
	if err != nil {
		return model.Page{}, err
	}
	var p model.Page
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return model.Page{}, fmt.Errorf("decode page %s: %w", pageID, err)
	}
	return p, nil
}

func (s Store) SavePage(ctx context.Context, p model.Page) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return errors.New("save page: missing page id")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `
		INSERT INTO pages(id, title, json, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, json = excluded.json, updated_at_unixms = excluded.updated_at_unixms`,
		p.ID, p.Title, string(raw), p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	return err
}

// PageSummary is a page plus its card count, for listings.
type PageSummary struct {
	model.Page
	Cards int `json:"cards"`
}

func (s Store) ListPages(ctx context.Context) ([]PageSummary, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT p.json, (SELECT COUNT(*) FROM cards c WHERE c.page_id = p.id)
		FROM pages p ORDER BY p.created_at_unixms, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PageSummary
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		var p model.Page
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, err
		}
		out = append(out, PageSummary{Page: p, Cards: n})
	}
	return out, rows.Err()
}
