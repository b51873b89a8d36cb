/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaFile = "../../processor/testdata/schema.yaml"

func TestRun(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out, []string{schemaFile}, 25, true))

	got := out.String()
	assert.Contains(t, got, "License\n")
	assert.Contains(t, got, "sort key:      lic#<number>")
	assert.Contains(t, got, "User\n")
	assert.Contains(t, got, "term rows per record: at most 9")
	assert.Contains(t, got, "    #email#name#3\n")
	assert.NotContains(t, got, "Error\n")
}

func TestRun_DuplicateAcrossFiles(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{schemaFile, schemaFile}, 25, false)
	assert.Error(t, err)
}

func TestRun_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
components:
  schemas:
    T:
      x-cipherstash: {partitionKey: missing}
      properties:
        a: {type: string}
`), 0o600))

	var out bytes.Buffer
	err := run(&out, []string{path}, 25, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
