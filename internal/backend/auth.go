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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	applog "draggrid/internal/log"
)

var (
	ErrTokenInvalid = errors.New("backend: invalid token")
	ErrTokenExpired = errors.New("backend: token expired")
)

// anonymous is the subject of grants issued without one.
const anonymous = "dev"

// Grant is what a sink token allows. A grant without boards covers every
// board; otherwise only the listed ones may be read or written.
type Grant struct {
	Subject string   `json:"sub"`
	Boards  []string `json:"boards,omitempty"`
	Expires int64    `json:"exp"` // unix seconds
}

// Allows reports whether the grant covers board.
func (g Grant) Allows(board string) bool {
	return len(g.Boards) == 0 || slices.Contains(g.Boards, board)
}

// SignGrant issues a bearer token "<payload>.<hmac>" for g, valid until exp.
func SignGrant(secret string, g Grant, exp time.Time) (string, error) {
	if g.Subject == "" {
		g.Subject = anonymous
	}
	for _, b := range g.Boards {
		if !boardName.MatchString(b) {
			return "", fmt.Errorf("backend: invalid board %q in grant", b)
		}
	}
	g.Expires = exp.Unix()
	payload, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(mac(secret, payload)), nil
}

// ParseGrant checks the signature of token and its expiry at now.
func ParseGrant(secret, token string, now time.Time) (Grant, error) {
	payloadPart, sigPart, ok := strings.Cut(token, ".")
	if !ok || strings.Contains(sigPart, ".") {
		return Grant{}, fmt.Errorf("%w: format", ErrTokenInvalid)
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: payload", ErrTokenInvalid)
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(mac(secret, payload), sig) {
		return Grant{}, fmt.Errorf("%w: signature", ErrTokenInvalid)
	}
	var g Grant
	if err := json.Unmarshal(payload, &g); err != nil {
		return Grant{}, fmt.Errorf("%w: claims", ErrTokenInvalid)
	}
	if g.Expires < now.Unix() {
		return Grant{}, ErrTokenExpired
	}
	return g, nil
}

func mac(secret string, payload []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payload)
	return h.Sum(nil)
}

// authorized resolves the bearer grant of r before calling next.
func (s *Server) authorized(next func(w http.ResponseWriter, r *http.Request, g Grant)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "bearer "
		auth := r.Header.Get("Authorization")
		if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		g, err := ParseGrant(s.secret, strings.TrimSpace(auth[len(prefix):]), s.now())
		if err != nil {
			s.log.Debug("token rejected", slog.String("path", r.URL.Path), slog.Any("err", err))
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r, g)
	}
}

// boardRoute is authorized for routes carrying {board}: the name must be
// valid and covered by the grant. Records logged with r's context carry the
// board.
func (s *Server) boardRoute(next func(w http.ResponseWriter, r *http.Request, board string, g Grant)) http.HandlerFunc {
	return s.authorized(func(w http.ResponseWriter, r *http.Request, g Grant) {
		board := r.PathValue("board")
		if !boardName.MatchString(board) {
			writeError(w, http.StatusBadRequest, errors.New("invalid board name"))
			return
		}
		if !g.Allows(board) {
			writeError(w, http.StatusForbidden, fmt.Errorf("token does not cover board %q", board))
			return
		}
		next(w, r.WithContext(applog.WithBoard(r.Context(), board)), board, g)
	})
}
