package paygate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryStatus(t *testing.T) {
	var gotForm url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		resp := map[string]string{
			"vpc_DRExists":        "Y",
			"vpc_TxnResponseCode": "0",
			"vpc_Message":         "Approved",
			"vpc_Amount":          "150000000",
			"vpc_TransactionNo":   "778899",
		}
		sig, err := Sign(resp, testSecretHex)
		require.NoError(t, err)

		body := url.Values{}
		for k, v := range resp {
			body.Set(k, v)
		}
		body.Set(FieldSecureHash, sig)
		w.Write([]byte(body.Encode()))
	}))
	defer srv.Close()

	cfg := testGateConfig()
	cfg.QueryURL = srv.URL
	client := NewClient(cfg)

	result, err := client.QueryStatus(context.Background(), "YH20260113A1CD0F-1")
	require.NoError(t, err)

	// Request was signed and carried the operator credentials.
	assert.Equal(t, "queryDR", gotForm.Get("vpc_Command"))
	assert.Equal(t, "op01", gotForm.Get("vpc_User"))
	assert.Equal(t, "YH20260113A1CD0F-1", gotForm.Get("vpc_MerchTxnRef"))
	assert.NotEmpty(t, gotForm.Get(FieldSecureHash))

	assert.True(t, client.VerifyResponse(result))
	assert.True(t, RecordExists(result))
	assert.True(t, Approved(result))
	assert.Equal(t, "778899", result[FieldTxnNo])
}

func TestQueryStatus_DeclinedRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("vpc_DRExists=N&vpc_TxnResponseCode=7&vpc_Message=No+record"))
	}))
	defer srv.Close()

	cfg := testGateConfig()
	cfg.QueryURL = srv.URL
	client := NewClient(cfg)

	result, err := client.QueryStatus(context.Background(), "ref-404")
	require.NoError(t, err)
	assert.False(t, RecordExists(result))
	assert.False(t, Approved(result))
}

func TestQueryStatus_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testGateConfig()
	cfg.QueryURL = srv.URL
	client := NewClient(cfg)

	_, err := client.QueryStatus(context.Background(), "ref-1")
	require.Error(t, err)
}

func TestQueryStatus_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%%%not-a-query-string"))
	}))
	defer srv.Close()

	cfg := testGateConfig()
	cfg.QueryURL = srv.URL
	client := NewClient(cfg)

	_, err := client.QueryStatus(context.Background(), "ref-1")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestQueryStatus_NetworkError(t *testing.T) {
	cfg := testGateConfig()
	cfg.QueryURL = "http://127.0.0.1:1"
	client := NewClient(cfg)

	_, err := client.QueryStatus(context.Background(), "ref-1")
	require.Error(t, err)
}
