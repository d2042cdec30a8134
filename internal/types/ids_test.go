package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id1 := NewID()
	id2 := NewID()

	require.NoError(t, id1.Validate())
	require.NoError(t, id2.Validate())
	assert.NotEqual(t, id1, id2)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expectErr bool
	}{
		{name: "valid UUID", input: "550e8400-e29b-41d4-a716-446655440000", expectErr: false},
		{name: "empty string", input: "", expectErr: true},
		{name: "not a UUID", input: "node-1", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestID_JSONZeroValue(t *testing.T) {
	var id ID
	require.True(t, id.IsZero())

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))

	// Empty and null both decode to the zero ID.
	var decoded ID
	require.NoError(t, json.Unmarshal([]byte(`""`), &decoded))
	assert.True(t, decoded.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.True(t, decoded.IsZero())
}

func TestID_UnmarshalJSON_Invalid(t *testing.T) {
	var id ID
	require.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &id))
}
