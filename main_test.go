package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /app/oauth/v2/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer"})
	})
	mux.HandleFunc("GET /app/oauth/v2/authInfo", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"customerId": "C1"}`)
	})
	mux.HandleFunc("GET /billingManagement/v2/billingAccounts/briefs", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"billingAccountType": "mobileprepaid", "billingAccountCode": "BA1", "billingAccountName": "SIM"}]`)
	})
	mux.HandleFunc("GET /prepaid/v1/status/{code}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"accountExpiryDate": "2024-01-15 10:30:00", "gc": {"value": {"amount": 1050}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeCommandPrintsGauges(t *testing.T) {
	srv := fakeAPI(t)
	t.Setenv("ORANGEPL_API_KEY", "key")
	t.Setenv("ORANGEPL_API_BASE_URL", srv.URL)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	accounts := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(accounts, []byte(`[{"username": "alice", "password": "pw"}]`), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"scrape", "--accounts-file", accounts})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, `orangepl_accounts_info{customer_id="C1",username="alice"} 1`)
	assert.Contains(t, text, `orangepl_prepaid_cash_pln{billing_account_code="BA1",cash_type="gc",customer_id="C1",username="alice"} 10.5`)
	assert.Contains(t, text, `orangepl_prepaid_expiry_date{billing_account_code="BA1",customer_id="C1",username="alice"} 1.705311e+09`)
	assert.NotContains(t, text, "orangepl_exporter_")
}

func TestScrapeCommandFailsWithoutAccountFile(t *testing.T) {
	t.Setenv("ORANGEPL_API_KEY", "key")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"scrape", "--accounts-file", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, cmd.Execute())
}

func TestRootCommandRequiresAPIKey(t *testing.T) {
	t.Setenv("ORANGEPL_API_KEY", "")

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"scrape"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORANGEPL_API_KEY")
}
