package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbedderOptionsOverrideDefaults(t *testing.T) {
	e := NewOpenAIEmbedder("dummy-key",
		WithModel("custom-model"),
		WithDimension(42),
	)

	assert.Equal(t, "custom-model", e.ModelName())
	assert.Equal(t, 42, e.Dimension())
}

func TestNewOpenAIEmbedderEmptyOptionsKeepDefaults(t *testing.T) {
	e := NewOpenAIEmbedder("dummy-key",
		WithModel(""),
		WithDimension(0),
	)

	assert.Equal(t, DefaultModel, e.ModelName())
	assert.Equal(t, DefaultDimension, e.Dimension())
}

func TestBatchEmbedValidatesInput(t *testing.T) {
	e := NewOpenAIEmbedder("dummy-key")

	// Execute: 空入力
	_, err := e.BatchEmbed(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no texts provided")

	// Execute: バッチ上限超過
	texts := make([]string, MaxBatchSize+1)
	_, err = e.BatchEmbed(context.Background(), texts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch size exceeds maximum")
}
