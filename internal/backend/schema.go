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
	_ "embed"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed layout.schema.json
var layoutSchemaJSON []byte

var (
	layoutSchemaOnce sync.Once
	layoutSchema     *gojsonschema.Schema
	layoutSchemaErr  error
)

// LayoutSchema returns the raw JSON schema for pushed layouts.
func LayoutSchema() []byte { return append([]byte(nil), layoutSchemaJSON...) }

// ValidateLayout checks a pushed body against the layout schema. The error
// lists every violation.
func ValidateLayout(data []byte) error {
	layoutSchemaOnce.Do(func() {
		layoutSchema, layoutSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(layoutSchemaJSON))
	})
	if layoutSchemaErr != nil {
		return fmt.Errorf("load layout schema: %w", layoutSchemaErr)
	}
	res, err := layoutSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid layout json: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("layout does not match schema: %s", strings.Join(msgs, "; "))
}
