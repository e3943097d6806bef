package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenAndValidate(t *testing.T) {
	token, err := IssueToken(time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, validateToken("Bearer "+token))
}

func TestValidateToken_RejectsMissing(t *testing.T) {
	assert.Error(t, validateToken(""))
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	assert.Error(t, validateToken("Bearer not-a-real-token"))
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	token, err := IssueToken(-time.Minute)
	require.NoError(t, err)
	assert.Error(t, validateToken("Bearer "+token))
}
