package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := objectKey("shop", "/categories/abc/", "my/photo.png")

	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, "shop", parts[0])
	assert.Equal(t, "categories", parts[1])
	assert.Equal(t, "abc", parts[2])

	id, name, ok := strings.Cut(parts[3], "_")
	require.True(t, ok)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, "my_photo.png", name)

	assert.True(t, strings.HasPrefix(key, folderPrefix("shop", "categories/abc")))
	assert.NotEqual(t, key, objectKey("shop", "categories/abc", "my/photo.png"))
}

func TestBatches(t *testing.T) {
	keys := make([]string, 2500)
	got := batches(keys, 1000)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 1000)
	assert.Len(t, got[2], 500)

	assert.Empty(t, batches(nil, 1000))
}
