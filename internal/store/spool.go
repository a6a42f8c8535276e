package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"cardboard/internal/persist"
)

// Spool keeps unload payloads on disk until they are replayed into a backend.
// It is a persist.Beacon: Send writes one file and never touches the network.
type Spool struct {
	d      *diskv.Diskv
	logger *slog.Logger
}

func (s Store) Spool(logger *slog.Logger) (*Spool, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Spool{
		d: diskv.New(diskv.Options{
			BasePath:     s.spoolDir(),
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 0,
		}),
		logger: logger.With("component", "spool"),
	}, nil
}

func spoolKey(p persist.Payload) string {
	return fmt.Sprintf("%s.%020d", p.PageID, p.Stamp.UnixNano())
}

func (sp *Spool) Send(p persist.Payload) {
	if p.Empty() {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		sp.logger.Warn("spool encode failed", "page", p.PageID, "err", err)
		return
	}
	if err := sp.d.Write(spoolKey(p), raw); err != nil {
		sp.logger.Warn("spool write failed", "page", p.PageID, "err", err)
		return
	}
	sp.logger.Debug("spooled", "page", p.PageID, "cards", len(p.Cards), "deleted", len(p.Deleted))
}

// Pending lists spooled keys for pageID (all pages when empty), oldest first.
func (sp *Spool) Pending(ctx context.Context, pageID string) []string {
	prefix := ""
	if pageID = strings.TrimSpace(pageID); pageID != "" {
		prefix = pageID + "."
	}
	var keys []string
	for k := range sp.d.KeysPrefix(prefix, ctx.Done()) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Replay writes spooled payloads for pageID into b, oldest first, and erases
// each one after it was written. Backends resolve overlap by UpdatedAt.
func (sp *Spool) Replay(ctx context.Context, pageID string, b persist.Backend) (int, error) {
	n := 0
	for _, key := range sp.Pending(ctx, pageID) {
		raw, err := sp.d.Read(key)
		if err != nil {
			return n, fmt.Errorf("read spool %s: %w", key, err)
		}
		var p persist.Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			sp.logger.Warn("dropping unreadable spool entry", "key", key, "err", err)
			_ = sp.d.Erase(key)
			continue
		}
		if err := b.UpsertCards(ctx, p.PageID, p.Cards); err != nil {
			return n, fmt.Errorf("replay %s: %w", key, err)
		}
		for _, id := range p.Deleted {
			if err := b.DeleteCard(ctx, p.PageID, id); err != nil {
				return n, fmt.Errorf("replay %s: delete %s: %w", key, id, err)
			}
		}
		if err := sp.d.Erase(key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
