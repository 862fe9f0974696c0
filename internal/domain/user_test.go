package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		username string
		err      error
	}{
		{"valid", "u-1", "Alice", nil},
		{"empty id", "", "Alice", ErrUserIDEmpty},
		{"empty name", "u-1", "", ErrUsernameEmpty},
		{"long id", strings.Repeat("x", MaxUserIDLen+1), "Alice", ErrUserIDTooLong},
		{"long name", "u-1", strings.Repeat("x", MaxUsernameLen+1), ErrUsernameTooLong},
		{"name at limit", "u-1", strings.Repeat("x", MaxUsernameLen), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewIdentity(tt.userID, tt.username)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, UserID(tt.userID), id.UserID)
			assert.Equal(t, tt.username, id.UserName)
		})
	}
}

func TestMemberSetMedia(t *testing.T) {
	m := NewMember(Identity{UserID: "u-1", UserName: "Alice"})

	m.SetMedia(MediaAudio, true)
	m.SetMedia(MediaVideo, true)
	assert.True(t, m.AudioMuted)
	assert.True(t, m.VideoOff)

	m.SetMedia(MediaAudio, false)
	m.SetMedia(MediaKind("screen"), false)
	assert.False(t, m.AudioMuted)
	assert.True(t, m.VideoOff)
}
