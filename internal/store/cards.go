package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cardboard/internal/model"
)

// LoadCards returns every card of pageID ordered by container and key.
func (s Store) LoadCards(ctx context.Context, pageID string) ([]model.Card, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return nil, errors.New("load cards: missing page id")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, json FROM cards WHERE page_id = ? ORDER BY parent_id, sort_key, id`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Card
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var c model.Card
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("decode card %s: %w", id, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCards writes cards last-write-wins: a row is only replaced when the
// incoming UpdatedAt is not older than the stored one.
func (s Store) UpsertCards(ctx context.Context, pageID string, cards []model.Card) error {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return errors.New("upsert cards: missing page id")
	}
	if len(cards) == 0 {
		return nil
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards(id, page_id, parent_id, card_type, sort_key, visible, json, updated_at_unixms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			page_id = excluded.page_id,
			parent_id = excluded.parent_id,
			card_type = excluded.card_type,
			sort_key = excluded.sort_key,
			visible = excluded.visible,
			json = excluded.json,
			updated_at_unixms = excluded.updated_at_unixms
		WHERE excluded.updated_at_unixms >= cards.updated_at_unixms`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cards {
		if strings.TrimSpace(c.ID) == "" {
			return errors.New("upsert cards: card without id")
		}
		c.PageID = pageID
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode card %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, pageID, c.Parent(), string(c.Type), c.SortKey, boolToInt(c.Visible), string(raw), c.UpdatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s Store) DeleteCard(ctx context.Context, pageID, cardID string) error {
	pageID = strings.TrimSpace(pageID)
	cardID = strings.TrimSpace(cardID)
	if pageID == "" || cardID == "" {
		return errors.New("delete card: missing page or card id")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `DELETE FROM cards WHERE page_id = ? AND id = ?`, pageID, cardID)
	return err
}
