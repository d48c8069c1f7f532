package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenValid(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	token := "token_abc"
	empty := ""
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name      string
		token     *string
		expiresAt *time.Time
		want      bool
	}{
		{name: "valid", token: &token, expiresAt: &future, want: true},
		{name: "nil token", token: nil, expiresAt: &future, want: false},
		{name: "empty token", token: &empty, expiresAt: &future, want: false},
		{name: "nil expiry", token: &token, expiresAt: nil, want: false},
		{name: "expired", token: &token, expiresAt: &past, want: false},
		{name: "expires exactly now", token: &token, expiresAt: &now, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenValid(tt.token, tt.expiresAt, now))
		})
	}
}
