/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package persist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"draggrid/internal/domain"
)

func TestSaveSendsLayout(t *testing.T) {
	var (
		gotMethod, gotType, gotAuth string
		gotBody                     []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":3}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Method: "put", Token: "tok"})
	defer c.Close()
	layout := domain.Layout{{ID: "a", X: 1, Y: 2, Width: 3, Height: 4, Title: "T"}}
	resp, err := c.Save(context.Background(), layout)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if gotMethod != http.MethodPut || gotType != "application/json" || gotAuth != "Bearer tok" {
		t.Fatalf("unexpected request: method=%s type=%s auth=%s", gotMethod, gotType, gotAuth)
	}
	want := `[{"id":"a","x":1,"y":2,"width":3,"height":4,"content":"","class":"","title":"T"}]`
	if string(gotBody) != want {
		t.Fatalf("body mismatch:\n got %s\nwant %s", gotBody, want)
	}
	var m map[string]int
	if err := json.Unmarshal(resp, &m); err != nil || m["version"] != 3 {
		t.Fatalf("response not decoded: %s err %v", resp, err)
	}
}

func TestSaveDefaultsToPost(t *testing.T) {
	c := New(Config{URL: "http://example.invalid"})
	defer c.Close()
	if c.Config().Method != http.MethodPost {
		t.Fatalf("expected POST default, got %s", c.Config().Method)
	}
}

func TestSaveErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "/text":
			_, _ = w.Write([]byte("saved"))
		}
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL + "/fail"})
	defer c.Close()
	if _, err := c.Save(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status error, got %v", err)
	}
	c2 := New(Config{URL: srv.URL + "/text"})
	defer c2.Close()
	if _, err := c2.Save(context.Background(), nil); err == nil {
		t.Fatalf("expected decode error for non-JSON body")
	}
	c3 := New(Config{})
	defer c3.Close()
	if _, err := c3.Save(context.Background(), nil); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
	srv.Close()
	if _, err := c.Save(context.Background(), nil); err == nil {
		t.Fatalf("expected transport error after server close")
	}
}

func TestEnqueueDelivers(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: 2 * time.Second})
	defer c.Close()
	c.Enqueue(domain.Layout{{ID: "a", Width: 1, Height: 1}})
	c.Flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || !strings.Contains(bodies[0], `"id":"a"`) {
		t.Fatalf("expected one push, got %v", bodies)
	}
	if c.Pending() != 0 {
		t.Fatalf("expected empty queue, got %d", c.Pending())
	}
}

func TestEnqueueFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(Config{URL: srv.URL})
	defer c.Close()
	c.Enqueue(domain.Layout{})
	c.Flush(context.Background())
	if c.Pending() != 0 {
		t.Fatalf("failed push should still leave the queue, pending=%d", c.Pending())
	}
}

func TestEnqueueFullQueueKeepsNewest(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		<-release
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, QueueSize: 1, Timeout: 2 * time.Second})
	defer c.Close()
	c.Enqueue(domain.Layout{{ID: "first"}})
	// wait for the worker to pick up the first push
	deadline := time.Now().Add(time.Second)
	for len(c.q) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Enqueue(domain.Layout{{ID: "second"}})
	c.Enqueue(domain.Layout{{ID: "third"}})
	if c.Pending() != 2 {
		t.Fatalf("expected in-flight plus one queued, got %d", c.Pending())
	}
	close(release)
	deadline = time.Now().Add(2 * time.Second)
	for c.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 || !strings.Contains(bodies[0], "first") || !strings.Contains(bodies[1], "third") {
		t.Fatalf("expected first and third pushes, got %v", bodies)
	}
}

func TestEnqueueDisabledIsNoop(t *testing.T) {
	c := New(Config{})
	defer c.Close()
	c.Enqueue(domain.Layout{{ID: "a"}})
	if c.Pending() != 0 {
		t.Fatalf("disabled client queued a push")
	}
	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatalf("nil client reported enabled")
	}
}
