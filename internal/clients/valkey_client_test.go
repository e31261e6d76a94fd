package clients

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationKey(t *testing.T) {
	a := ClassificationKey("love it")
	b := ClassificationKey("love it")
	c := ClassificationKey("Love it")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, VALKEY_CLASSIFICATION_PREFIX))
	assert.Len(t, strings.TrimPrefix(a, VALKEY_CLASSIFICATION_PREFIX), 64)
}

func TestDatasetKey(t *testing.T) {
	assert.Equal(t, "instalens:dataset:acme", DatasetKey("  ACME "))
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(errors.New("dial tcp: connection refused")))
	assert.True(t, isConnectionError(errors.New("read: i/o timeout")))
	assert.False(t, isConnectionError(errors.New("WRONGTYPE")))
}
