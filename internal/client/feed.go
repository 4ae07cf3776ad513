package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tedtam/fieldops/internal/store"
)

// reconnectDelay paces the retry loop after a dropped stream.
const reconnectDelay = 2 * time.Second

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe opens the server's SSE change feed and invokes fn for
// every event until Close. A dropped connection reconnects after a
// short delay; events emitted while disconnected are gone, so
// consumers refresh with List after a gap, same as any at-least-once
// feed.
func (c *Client) Subscribe(fn func(store.Event)) store.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	go func() {
		defer close(sub.done)
		for {
			if err := c.streamOnce(ctx, fn); err != nil && ctx.Err() == nil {
				c.logger.Warn("change feed disconnected, retrying", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()

	return sub
}

// streamOnce holds one SSE connection open, decoding data frames into
// events. Returns when the stream breaks or ctx is cancelled.
func (c *Client) streamOnce(ctx context.Context, fn func(store.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/customers/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "text/event-stream")

	// The stream must outlive any client-level timeout.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev store.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			c.logger.Warn("undecodable change feed frame dropped", "error", err)
			continue
		}
		fn(ev)
	}
	return scanner.Err()
}
