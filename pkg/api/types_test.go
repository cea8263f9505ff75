package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDMarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   EntityID
		want string
	}{
		{"42", `42`},
		{"-3", `-3`},
		{"007", `"007"`},
		{"abc", `"abc"`},
		{"", `""`},
		{"99999999999999999999", `"99999999999999999999"`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data), "id %q", tt.id)
	}
}

func TestEntityIDUnmarshal(t *testing.T) {
	t.Parallel()

	var req StatusChange
	require.NoError(t, json.Unmarshal([]byte(`{"userId": 7, "closeDate": "2026-09-30"}`), &req))
	assert.Equal(t, EntityID("7"), req.UserID)

	require.NoError(t, json.Unmarshal([]byte(`{"userId": "u-7"}`), &req))
	assert.Equal(t, EntityID("u-7"), req.UserID)

	require.NoError(t, json.Unmarshal([]byte(`{"userId": null}`), &req))
	assert.Equal(t, EntityID(""), req.UserID)

	assert.Error(t, json.Unmarshal([]byte(`{"userId": true}`), &req))
}

func TestValidationRequestID(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(ValidationRequest{ID: EntityID("4"), Name: "email", Value: "a@b.c"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 4, "name": "email", "value": "a@b.c"}`, string(data))

	data, err = json.Marshal(ValidationRequest{Name: "email", Value: "a@b.c"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": null, "name": "email", "value": "a@b.c"}`, string(data))
}
