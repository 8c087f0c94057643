package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "url": {"type": "string"},
    "retries": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

func TestValidator(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"url": "wss://x", "retries": 3}))

	err = v.Validate(map[string]interface{}{"retries": -1, "extra": true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
	assert.Contains(t, err.Error(), "/retries")
}

func TestValidatorBadSchema(t *testing.T) {
	_, err := NewValidator("bad.json", []byte(`{"type": 12`))
	assert.Error(t, err)
}
