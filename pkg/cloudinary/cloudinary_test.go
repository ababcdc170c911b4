package cloudinary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1712345678/rewards/reward_ab12.jpg", "rewards/reward_ab12"},
		{"https://res.cloudinary.com/demo/image/upload/q_auto,f_auto,w_800,c_fill/rewards/mug.png", "rewards/mug"},
		{"https://res.cloudinary.com/demo/image/upload/w_200/v1/rewards/mug.webp", "rewards/mug"},
		{"https://res.cloudinary.com/demo/image/upload/mug", "mug"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := PublicIDFromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublicIDFromURL_Rejects(t *testing.T) {
	_, err := PublicIDFromURL("https://example.com/img.png")
	assert.ErrorIs(t, err, ErrNotCloudinaryURL)
}

func TestBuildOptimizedImageURL(t *testing.T) {
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/q_auto,f_auto,w_800,c_fill/mug",
		BuildOptimizedImageURL("demo", "mug", 0))
}
