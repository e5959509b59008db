package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenNow(t *testing.T) {
	tests := []struct {
		name      string
		playlists []Playlist
		expected  string // expected ID, empty for nil
	}{
		{
			name:      "empty list",
			playlists: []Playlist{},
			expected:  "",
		},
		{
			name: "no flagged playlist",
			playlists: []Playlist{
				{ID: "pl-1", Name: "Mixtape"},
				{ID: "pl-2", Name: "Live"},
			},
			expected: "",
		},
		{
			name: "one flagged playlist",
			playlists: []Playlist{
				{ID: "pl-1", Name: "Mixtape"},
				{ID: "pl-2", Name: "Live", IsListenNow: true},
			},
			expected: "pl-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ListenNow(tt.playlists)
			if tt.expected == "" {
				assert.Nil(t, result)
				return
			}
			assert.NotNil(t, result)
			assert.Equal(t, tt.expected, result.ID)
		})
	}
}
