package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportPath_Valid(t *testing.T) {
	id := uuid.New()
	batchID, year, err := parseReportPath("/api/report/" + id.String() + "/2023")
	require.NoError(t, err)
	assert.Equal(t, id, batchID)
	assert.Equal(t, 2023, year)
}

func TestParseReportPath_WrongShape(t *testing.T) {
	_, _, err := parseReportPath("/api/report/only-one-segment")
	assert.Error(t, err)
}

func TestParseReportPath_BadUUID(t *testing.T) {
	_, _, err := parseReportPath("/api/report/not-a-uuid/2023")
	assert.Error(t, err)
}

func TestParseReportPath_BadYear(t *testing.T) {
	id := uuid.New()
	_, _, err := parseReportPath("/api/report/" + id.String() + "/not-a-year")
	assert.Error(t, err)
}
