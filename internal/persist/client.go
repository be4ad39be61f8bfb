/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package persist pushes serialized layouts to a remote persistence target.
// Save is the explicit, error-reporting path; Enqueue is fire-and-forget and
// never blocks the caller.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"draggrid/internal/domain"
	applog "draggrid/internal/log"
	"draggrid/internal/version"
)

// ErrNoTarget is returned by Save when no URL is configured.
var ErrNoTarget = errors.New("persist: no target url configured")

const (
	defaultTimeout   = 5 * time.Second
	defaultQueueSize = 16
	flushWait        = 500 * time.Millisecond
)

// Config holds the push target.
type Config struct {
	URL       string
	Method    string // POST (default) or PUT
	Token     string // optional bearer token
	Timeout   time.Duration
	QueueSize int
}

// Client sends layouts to Config.URL. The async queue is bounded; when it is
// full the oldest pending layout is replaced, so the newest state always wins.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan domain.Layout
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
	done    chan struct{}
}

// New constructs a client and starts its worker.
func New(cfg Config) *Client {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("persist").With(slog.String("url", cfg.URL)),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan domain.Layout, cfg.QueueSize),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether a target is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.URL != "" }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Save sends layout and decodes the JSON response. Transport failures,
// non-2xx statuses and undecodable bodies are errors.
func (c *Client) Save(ctx context.Context, layout domain.Layout) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrNoTarget
	}
	body, err := layout.Encode()
	if err != nil {
		return nil, fmt.Errorf("persist: encode layout: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, c.cfg.Method, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("persist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "draggrid/"+version.String())
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("persist: %s %s: %w", c.cfg.Method, c.cfg.URL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("persist: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("persist: server %s %s: %s", c.cfg.Method, c.cfg.URL, resp.Status)
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("persist: decode response: %w", err)
	}
	return raw, nil
}

// Enqueue schedules an async push. Safe to call from anywhere; it never blocks.
func (c *Client) Enqueue(layout domain.Layout) {
	if !c.Enabled() {
		return
	}
	select {
	case <-c.closed:
		return
	default:
	}
	cp := append(domain.Layout(nil), layout...)
	c.pending.Add(1)
	for {
		select {
		case c.q <- cp:
			return
		default:
		}
		// full: drop the oldest pending layout
		select {
		case <-c.q:
			c.pending.Add(-1)
			c.log.Debug("push dropped, queue full")
		default:
		}
	}
}

// Pending returns the number of queued or in-flight pushes.
func (c *Client) Pending() int { return int(c.pending.Load()) }

// Flush waits briefly for queued pushes to complete.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(flushWait)
	for {
		if c.pending.Load() <= 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close stops the worker. Pending pushes are abandoned.
func (c *Client) Close() {
	c.once.Do(func() { close(c.closed) })
	<-c.done
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return
		case layout := <-c.q:
			c.send(layout)
			c.pending.Add(-1)
		}
	}
}

func (c *Client) send(layout domain.Layout) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if _, err := c.Save(ctx, layout); err != nil {
		c.log.Warn("layout push failed", slog.Any("err", err), slog.Int("widgets", len(layout)))
		return
	}
	c.log.Debug("layout pushed", slog.Int("widgets", len(layout)))
}
