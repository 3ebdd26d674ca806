package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	got, err := NormalizePath(`sub\dir\file.txt`)
	require.NoError(t, err)
	assert.Equal(t, "sub/dir/file.txt", got)
}

func TestNormalizePathTrimsSlashes(t *testing.T) {
	got, err := NormalizePath("/a/b/")
	require.NoError(t, err)
	assert.Equal(t, "a/b", got)
}

func TestNormalizePathRejectsDotDot(t *testing.T) {
	_, err := NormalizePath("a/../../etc/passwd")
	assert.Error(t, err)
}

func TestNormalizePathRejectsEmpty(t *testing.T) {
	_, err := NormalizePath("")
	assert.Error(t, err)

	_, err = NormalizePath("///")
	assert.Error(t, err)
}

func TestNormalizePathNFC(t *testing.T) {
	// "é" as NFD (e + combining acute) should normalize to the same NFC form.
	nfd := "café.txt"
	nfc := "café.txt"

	got, err := NormalizePath(nfd)
	require.NoError(t, err)
	assert.Equal(t, nfc, got)
}
