/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	assert.Nil(t, Chunk(0, 100))
	assert.Equal(t, [][2]int{{0, 3}}, Chunk(3, 100))
	assert.Equal(t, [][2]int{{0, 100}, {100, 200}, {200, 201}}, Chunk(201, 100))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, Chunk(2, 0))
}
