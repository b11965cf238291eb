// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package api_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcab/tutorcab/internal/api"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	assert.Equal(t, []string{"lesson", "login", "material", "register", "step", "student"}, api.SchemaNames())

	raw, err := api.GenerateSchema("register")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, api.SchemaBaseID+"register.schema.json", doc["$id"])
	assert.ElementsMatch(t, []any{"phone", "password", "fullName", "subjects", "city"}, doc["required"])
	props := doc["properties"].(map[string]any)
	assert.Contains(t, props, "experience")
	assert.Equal(t, "array", props["subjects"].(map[string]any)["type"])

	raw, err = api.GenerateSchema("step")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "integer", doc["properties"].(map[string]any)["step"].(map[string]any)["type"])

	_, err = api.GenerateSchema("payment")
	errutil.AssertErrorCode(t, err, "SCHEMA_UNKNOWN")
}
