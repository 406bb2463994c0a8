package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordCommand(t *testing.T) {
	cmd := newHashPasswordCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader("s3cret\n"))
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashPasswordRejectsEmptyInput(t *testing.T) {
	cmd := newHashPasswordCmd()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("BANNERS_IDENTITY_FILE", "")
	t.Setenv("BANNERS_TOKEN_SECRET", "super-secret")

	cmd := newConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--check"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BANNERS_IDENTITY_FILE")
	assert.NotContains(t, out.String(), "super-secret")

	var desc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &desc))
	assert.Equal(t, false, desc["ready"])
}
