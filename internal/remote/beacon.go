package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cardboard/internal/persist"
)

// Beacon posts unload payloads on a background goroutine. Send returns
// immediately; failures are logged and dropped.
type Beacon struct {
	client  *Client
	timeout time.Duration
	wg      sync.WaitGroup
}

func (c *Client) Beacon(timeout time.Duration) *Beacon {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Beacon{client: c, timeout: timeout}
}

func (b *Beacon) Send(p persist.Payload) {
	if p.Empty() {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := b.client.do(ctx, http.MethodPost, b.client.pageURL(p.PageID, "beacon"), p, nil); err != nil {
			b.client.logger.Warn("beacon failed", "page", p.PageID, "cards", len(p.Cards), "err", err)
		}
	}()
}

// Wait blocks until every beacon sent so far has finished or timed out.
// Processes call it right before exiting.
func (b *Beacon) Wait() {
	b.wg.Wait()
}
