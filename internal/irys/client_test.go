package irys

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Mercenaries/zorp/internal/config"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.IrysConfig{
		GatewayURL: srv.URL,
		NodeURL:    srv.URL,
		Token:      "ethereum",
		Timeout:    5,
	})
}

func TestGetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/balance/ethereum", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
		w.Write([]byte(`{"balance":"1000000000000000000"}`))
	}))
	defer srv.Close()

	balance, err := newTestClient(srv).GetBalance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000000000000000000), balance)
}

func TestGetBalanceBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance":"not-a-number"}`))
	}))
	defer srv.Close()

	balance, err := newTestClient(srv).GetBalance(context.Background(), "0xabc")
	assert.Nil(t, balance)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "balance", netErr.Op)
}

func TestUpload(t *testing.T) {
	payload := []byte("encrypted payload bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tx/ethereum", r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"id":"cid-123","timestamp":1712000000,"version":"1.0.0"}`))
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv).Upload(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "cid-123", receipt.Cid)
	assert.Equal(t, int64(len(payload)), receipt.ByteSize)
	assert.NotEmpty(t, receipt.ProviderReceipt)
}

func TestUploadInsufficientBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not enough funds to send data", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv).Upload(context.Background(), []byte("data"))
	assert.Nil(t, receipt)

	var balanceErr *InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Contains(t, balanceErr.Detail, "not enough funds")
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Upload(context.Background(), []byte("data"))

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	// A definite rejection is not ambiguous; retrying is safe
	assert.False(t, upErr.Ambiguous)
}

func TestUploadTimeoutIsAmbiguous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client := NewClient(config.IrysConfig{
		GatewayURL: srv.URL,
		NodeURL:    srv.URL,
		Token:      "ethereum",
		Timeout:    1,
	})

	_, err := client.Upload(context.Background(), []byte("data"))

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.True(t, upErr.Ambiguous)
}

func TestUploadReceiptWithoutId(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"timestamp":1712000000}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Upload(context.Background(), []byte("data"))

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	// The provider answered 2xx, so the bytes may be stored
	assert.True(t, upErr.Ambiguous)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cid-123", r.URL.Path)
		w.Write([]byte("stored content"))
	}))
	defer srv.Close()

	data, err := newTestClient(srv).Fetch(context.Background(), "cid-123")
	require.NoError(t, err)
	assert.Equal(t, []byte("stored content"), data)
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Fetch(context.Background(), "missing-cid")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing-cid", notFound.Cid)
}

func TestFetchEmptyCid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty cid")
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Fetch(context.Background(), "")

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Fetch(context.Background(), "cid-123")

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "fetch", netErr.Op)
}
