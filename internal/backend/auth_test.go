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
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGrantRoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	tok, err := SignGrant("s", Grant{Subject: "alice", Boards: []string{"main", "ops"}}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("SignGrant error: %v", err)
	}
	g, err := ParseGrant("s", tok, now)
	if err != nil {
		t.Fatalf("ParseGrant error: %v", err)
	}
	if g.Subject != "alice" || g.Expires != now.Add(time.Minute).Unix() {
		t.Fatalf("grant = %+v", g)
	}
	if !g.Allows("ops") || g.Allows("sales") {
		t.Fatalf("scope mismatch: %+v", g.Boards)
	}

	anon, _ := SignGrant("s", Grant{}, now.Add(time.Minute))
	g, err = ParseGrant("s", anon, now)
	if err != nil || g.Subject != "dev" || !g.Allows("anything") {
		t.Fatalf("unscoped grant = %+v err %v", g, err)
	}
}

func TestGrantRejections(t *testing.T) {
	now := time.Now()
	tok, _ := SignGrant("s", Grant{Subject: "alice"}, now.Add(time.Minute))
	if _, err := ParseGrant("s", tok, now.Add(2*time.Minute)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := ParseGrant("t", tok, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected signature error with wrong secret, got %v", err)
	}
	_, sig, _ := strings.Cut(tok, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"mallory","exp":9999999999}`)) + "." + sig
	for _, bad := range []string{"", "abc", "a.b.c", "!!.??", forged} {
		if _, err := ParseGrant("s", bad, now); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", bad, err)
		}
	}
	if _, err := SignGrant("s", Grant{Boards: []string{"a/b"}}, now); err == nil {
		t.Fatalf("grant with an invalid board name was signed")
	}
}

func TestValidateLayout(t *testing.T) {
	if err := ValidateLayout([]byte(`[]`)); err != nil {
		t.Fatalf("empty layout rejected: %v", err)
	}
	ok := `[{"id":"a","x":0,"y":0,"width":3,"height":2,"content":"","class":"","title":""}]`
	if err := ValidateLayout([]byte(ok)); err != nil {
		t.Fatalf("valid layout rejected: %v", err)
	}
	err := ValidateLayout([]byte(`[{"id":"","x":0,"y":0,"width":3}]`))
	if err == nil || !strings.Contains(err.Error(), "height") {
		t.Fatalf("expected schema error mentioning height, got %v", err)
	}
	if len(LayoutSchema()) == 0 {
		t.Fatalf("schema not embedded")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("migrations/0002_layouts_board_idx.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion got %d err %v", v, err)
	}
	if _, err := parseVersion("nounderscore.sql"); err == nil {
		t.Fatalf("expected error for missing version prefix")
	}
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil || len(entries) < 2 {
		t.Fatalf("embedded migrations missing: %v", err)
	}
}
