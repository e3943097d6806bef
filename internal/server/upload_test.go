package server

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/data"
)

// TestUploadAndReportEndToEnd drives uploadHandler and reportHandler the
// way a real client would, against a live Postgres/Redis connection, the
// way internal/services/alerts/alerts_test.go drives its own handlers
// through data.InitTestConn. It is skipped when that environment isn't
// available.
func TestUploadAndReportEndToEnd(t *testing.T) {
	conn, cleanup := data.InitTestConn(t)
	defer cleanup()

	token, err := IssueToken(time.Hour)
	require.NoError(t, err)

	tradesCSV := "Fecha,ISIN,Producto,Número,Total en EUR\n" +
		"05-01-2023,ES0000000000,ACME,10,-100\n" +
		"15-06-2023,ES0000000000,ACME,-5,60\n"
	cashCSV := "Fecha,Producto,ISIN,Descripción,Importe\n" +
		"01-06-2023,ACME,ES0000000000,Dividendo,100\n"

	uploadArgs, err := json.Marshal(UploadArgs{
		TradesCSV: base64.StdEncoding.EncodeToString([]byte(tradesCSV)),
		CashCSV:   base64.StdEncoding.EncodeToString([]byte(cashCSV)),
	})
	require.NoError(t, err)

	reqBody, err := json.Marshal(Request{Function: "upload", Arguments: uploadArgs})
	require.NoError(t, err)

	uploadRec := httptest.NewRecorder()
	uploadReq := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(reqBody))
	uploadReq.Header.Set("Authorization", "Bearer "+token)

	uploadHandler(conn)(uploadRec, uploadReq)
	require.Equal(t, http.StatusOK, uploadRec.Code, uploadRec.Body.String())

	var uploadResult UploadResult
	require.NoError(t, json.Unmarshal(uploadRec.Body.Bytes(), &uploadResult))
	require.Contains(t, uploadResult.Years, 2023)

	reportRec := httptest.NewRecorder()
	reportPath := fmt.Sprintf("/api/report/%s/2023", uploadResult.BatchID)
	reportReq := httptest.NewRequest(http.MethodGet, reportPath, nil)
	reportReq.URL.Path = reportPath
	reportReq.Header.Set("Authorization", "Bearer "+token)

	reportHandler(conn)(reportRec, reportReq)
	require.Equal(t, http.StatusOK, reportRec.Code, reportRec.Body.String())
	assert.Equal(t, "application/zip", reportRec.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(reportRec.Body.Bytes()), int64(reportRec.Body.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "compras_2023.csv")
	assert.Contains(t, names, "ventas_2023.csv")
	assert.Contains(t, names, "dividendos_2023.csv")
	assert.Contains(t, names, "cartera_2023.csv")
}

func TestUploadHandler_RejectsMissingAuth(t *testing.T) {
	conn, cleanup := data.InitTestConn(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader([]byte(`{}`)))

	uploadHandler(conn)(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportHandler_RejectsWrongMethod(t *testing.T) {
	conn, cleanup := data.InitTestConn(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/report/x/2023", nil)

	reportHandler(conn)(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
