package main

import (
	"bytes"
	"strings"
	"testing"

	"eventrental/internal/httpapi"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintAdminToken(t *testing.T) {
	tokens := httpapi.NewTokens("test-secret")
	adminID := uuid.New()

	var out bytes.Buffer
	require.NoError(t, printAdminToken(&out, tokens, adminID))

	line := strings.TrimSpace(out.String())
	token, found := strings.CutPrefix(line, "admin token (24h): ")
	require.True(t, found)

	got, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, adminID, got)
}
