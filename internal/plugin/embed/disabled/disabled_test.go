package disabled

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledEmbedder_EmbedTextsAlwaysErrors(t *testing.T) {
	e := &disabledEmbedder{}
	vectors, err := e.EmbedTexts(context.Background(), []string{"anything"})
	assert.Error(t, err)
	assert.Nil(t, vectors)
}

func TestDisabledEmbedder_ModelNameAndDimension(t *testing.T) {
	e := &disabledEmbedder{}
	assert.Equal(t, "none", e.ModelName())
	assert.Equal(t, 0, e.Dimension())
}
