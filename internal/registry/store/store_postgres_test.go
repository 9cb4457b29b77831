package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresSourceRequiresPool(t *testing.T) {
	_, err := NewPostgresSource(nil)
	assert.Error(t, err)
}
