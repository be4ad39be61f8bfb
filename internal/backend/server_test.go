/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *MemStore) {
	t.Helper()
	store := NewMemStore()
	srv := httptest.NewServer(NewServer(store, testSecret).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func bearer(t *testing.T, boards ...string) string {
	t.Helper()
	tok, err := SignGrant(testSecret, Grant{Subject: "tester", Boards: boards}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SignGrant error: %v", err)
	}
	return "Bearer " + tok
}

func do(t *testing.T, method, url, auth, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthReadyVersion(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		if resp := do(t, http.MethodGet, srv.URL+p, "", ""); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status %d", p, resp.StatusCode)
		}
	}
}

func TestSaveAndLatest(t *testing.T) {
	srv, store := newTestServer(t)
	auth := bearer(t)
	body := `[{"id":"a","x":0,"y":0,"width":3,"height":2,"content":"<p>x</p>","class":"","title":"A"}]`
	resp := do(t, http.MethodPut, srv.URL+"/api/layouts/main", auth, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status %d", resp.StatusCode)
	}
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != 1 || env.Board != "main" || env.Subject != "tester" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/api/layouts/main", auth, `[]`); resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/layouts/main", auth, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status %d", resp.StatusCode)
	}
	env = Envelope{}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != 2 || string(bytes.TrimSpace(env.Layout)) != "[]" {
		t.Fatalf("expected version 2 with empty layout, got %+v (%s)", env, env.Layout)
	}

	boards, _ := store.Boards(t.Context())
	if len(boards) != 1 || boards[0].Version != 2 || boards[0].Widgets != 0 {
		t.Fatalf("unexpected boards: %+v", boards)
	}
	resp = do(t, http.MethodGet, srv.URL+"/api/layouts", auth, "")
	var list []BoardInfo
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("list boards got %v err %v", list, err)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	if resp := do(t, http.MethodGet, srv.URL+"/api/layouts/main", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, srv.URL+"/api/layouts/main", "Bearer junk", "[]"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
	other, _ := SignGrant("other-secret", Grant{Subject: "x"}, time.Now().Add(time.Hour))
	if resp := do(t, http.MethodPut, srv.URL+"/api/layouts/main", "Bearer "+other, "[]"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign token, got %d", resp.StatusCode)
	}
}

func TestIssueTokenRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/api/auth/token", "", `{"subject":"me","ttl_seconds":60,"boards":["main"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	g, err := ParseGrant(testSecret, out.Token, time.Now())
	if err != nil || g.Subject != "me" || !g.Allows("main") || g.Allows("ops") {
		t.Fatalf("ParseGrant = %+v err=%v", g, err)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/api/auth/token", "", `{"boards":["../x"]}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid board scope, got %d", resp.StatusCode)
	}
}

func TestBoardScopedToken(t *testing.T) {
	srv, store := newTestServer(t)
	if _, err := store.SaveLayout(t.Context(), "ops", "seed", json.RawMessage(`[]`), 0); err != nil {
		t.Fatalf("SaveLayout error: %v", err)
	}
	scoped := bearer(t, "main")
	if resp := do(t, http.MethodPut, srv.URL+"/api/layouts/main", scoped, "[]"); resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT main status %d", resp.StatusCode)
	}
	for _, method := range []string{http.MethodGet, http.MethodPut} {
		if resp := do(t, method, srv.URL+"/api/layouts/ops", scoped, "[]"); resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s ops: expected 403, got %d", method, resp.StatusCode)
		}
	}
	resp := do(t, http.MethodGet, srv.URL+"/api/layouts", scoped, "")
	var list []BoardInfo
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 || list[0].Board != "main" {
		t.Fatalf("scoped list = %+v err %v", list, err)
	}
}

func TestSaveRejectsInvalidLayouts(t *testing.T) {
	srv, _ := newTestServer(t)
	auth := bearer(t)
	cases := map[string]string{
		"not json":       `{oops`,
		"object":         `{"id":"a"}`,
		"missing height": `[{"id":"a","x":0,"y":0,"width":1}]`,
		"negative x":     `[{"id":"a","x":-1,"y":0,"width":1,"height":1}]`,
		"string width":   `[{"id":"a","x":0,"y":0,"width":"3","height":1}]`,
		"zero height":    `[{"id":"a","x":0,"y":0,"width":1,"height":0}]`,
		"huge height":    `[{"id":"a","x":0,"y":0,"width":1,"height":50000000}]`,
		"far row":        `[{"id":"a","x":0,"y":1000,"width":1,"height":1}]`,
	}
	for name, body := range cases {
		if resp := do(t, http.MethodPut, srv.URL+"/api/layouts/main", auth, body); resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", name, resp.StatusCode)
		}
	}
	if resp := do(t, http.MethodPut, srv.URL+"/api/layouts/..bad", auth, "[]"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad board name, got %d", resp.StatusCode)
	}
}

func TestLatestNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	if resp := do(t, http.MethodGet, srv.URL+"/api/layouts/none", bearer(t), ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
