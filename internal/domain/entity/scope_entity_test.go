package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeSet_Contains(t *testing.T) {
	tests := []struct {
		name     string
		granted  []string
		required []string
		want     bool
		missing  []string
	}{
		{name: "subset", granted: []string{"read", "write"}, required: []string{"read"}, want: true},
		{name: "equal", granted: []string{"read"}, required: []string{"read"}, want: true},
		{name: "empty requirement", granted: nil, required: nil, want: true},
		{name: "missing one", granted: []string{"write"}, required: []string{"read"}, want: false, missing: []string{"read"}},
		{name: "missing several", granted: []string{"read"}, required: []string{"write", "admin", "read"}, want: false, missing: []string{"admin", "write"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			granted := NewScopeSet(tt.granted...)
			required := NewScopeSet(tt.required...)
			assert.Equal(t, tt.want, granted.Contains(required))
			assert.Equal(t, tt.missing, granted.Missing(required))
		})
	}
}

func TestNewScopeSet_TrimsAndDedupes(t *testing.T) {
	s := NewScopeSet(" read", "read", "", "admin ")
	assert.Equal(t, []string{"admin", "read"}, s.Names())
}

func TestUser_ProfileOmitsHash(t *testing.T) {
	u := &User{ID: "u1", Email: "a@example.com", FullName: "A", PasswordHash: "$2a$...", Scopes: []string{"read"}}
	p := u.Profile()
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, []string{"read"}, p.Scopes)

	p.Scopes[0] = "admin"
	assert.Equal(t, "read", u.Scopes[0], "profile must not alias the user's scopes")
}
