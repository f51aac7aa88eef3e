package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupsFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		claim  string
		want   []string
	}{
		{"missing", map[string]any{}, "groups", nil},
		{"single string", map[string]any{"groups": "ops"}, "groups", []string{"ops"}},
		{"json array", map[string]any{"roles": []any{"ops", 42, "dev"}}, "roles", []string{"ops", "dev"}},
		{"string slice", map[string]any{"groups": []string{"a"}}, "groups", []string{"a"}},
		{"wrong type", map[string]any{"groups": 1}, "groups", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupsFromClaims(tt.claims, tt.claim))
		})
	}
}

func TestGenerateStateToken(t *testing.T) {
	a, err := GenerateStateToken()
	assert.NoError(t, err)

	b, err := GenerateStateToken()
	assert.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestDisabledProviders(t *testing.T) {
	_, err := NewLDAPProvider(LDAPConfig{}, nil)
	assert.ErrorIs(t, err, ErrLDAPDisabled)

	_, err = NewOIDCProvider(t.Context(), OIDCConfig{}, nil)
	assert.ErrorIs(t, err, ErrOIDCDisabled)
}
