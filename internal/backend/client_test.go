package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/pos-settlement/internal/domain/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"p1","name":"Rice","category":"grocery","unit_price":80.5,"list_price":90,"stock":12,"tax_rate":5,"tax_mode":"inclusive"},
			{"id":"p2","name":"Soap","category":"care","unit_price":40,"list_price":45,"stock":0,"tax_rate":18,"tax_mode":"exclusive"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	products, err := client.FetchProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, tax.ModeInclusive, products[0].TaxMode)
	assert.Equal(t, tax.ModeExclusive, products[1].TaxMode)
	assert.Equal(t, 12, products[0].Stock)
	assert.True(t, products[0].UnitPrice.InexactFloat64() == 80.5)
}

func TestClient_FindCustomerByPhone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers", r.URL.Path)
		switch r.URL.Query().Get("phone") {
		case "+911234567890":
			_, _ = w.Write([]byte(`[{"id":"c1","name":"Asha","phone":"+911234567890"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")

	found, err := client.FindCustomerByPhone(context.Background(), "+911234567890")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c1", found.ID)

	missing, err := client.FindCustomerByPhone(context.Background(), "+910000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClient_VerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/verify", r.URL.Path)
		var req VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": req.Signature == "good"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")

	ok, err := client.VerifyPayment(context.Background(), VerifyRequest{OrderID: "o1", PaymentID: "pay_1", Signature: "good"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.VerifyPayment(context.Background(), VerifyRequest{OrderID: "o1", PaymentID: "pay_1", Signature: "bad"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Refund_BackendErrorSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/refund/pay_1", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "refund amount exceeds captured amount"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	amount := int64(999999)
	refund, err := client.Refund(context.Background(), "pay_1", RefundRequest{Amount: &amount})

	require.Error(t, err)
	assert.Nil(t, refund)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "exceeds captured amount")
}
