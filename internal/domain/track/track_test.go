package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Same(t *testing.T) {
	tests := []struct {
		name     string
		a        Track
		b        Track
		expected bool
	}{
		{
			name:     "same id different fields",
			a:        Track{ID: "item-1", Title: "Song", VideoID: "v1"},
			b:        Track{ID: "item-1", Title: "Song (remaster)", VideoID: "v2"},
			expected: true,
		},
		{
			name:     "different id same fields",
			a:        Track{ID: "item-1", Title: "Song", VideoID: "v1"},
			b:        Track{ID: "item-2", Title: "Song", VideoID: "v1"},
			expected: false,
		},
		{
			name:     "zero values",
			a:        Track{},
			b:        Track{},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Same(tt.b))
		})
	}
}

func TestIndexOf(t *testing.T) {
	tracks := []Track{
		{ID: "item-1", Title: "First"},
		{ID: "item-2", Title: "Second"},
		{ID: "item-3", Title: "Third"},
	}

	assert.Equal(t, 0, IndexOf(tracks, "item-1"))
	assert.Equal(t, 2, IndexOf(tracks, "item-3"))
	assert.Equal(t, -1, IndexOf(tracks, "item-4"))
	assert.Equal(t, -1, IndexOf(nil, "item-1"))
}

func TestIndexOf_DuplicateNonIDFields(t *testing.T) {
	// Two distinct items that differ only by ID must not be confused.
	tracks := []Track{
		{ID: "item-1", Title: "Same Title", VideoID: "v", Thumbnail: "t"},
		{ID: "item-2", Title: "Same Title", VideoID: "v", Thumbnail: "t"},
	}

	assert.Equal(t, 0, IndexOf(tracks, "item-1"))
	assert.Equal(t, 1, IndexOf(tracks, "item-2"))
}
