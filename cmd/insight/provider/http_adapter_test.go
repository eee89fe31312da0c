package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-insight/cmd/insight/consulting"
	"brand-insight/cmd/internal/httpclient"
	"brand-insight/cmd/internal/trace"
)

func TestHTTPAdapterTextInsight(t *testing.T) {
	var got httpInvokeRequest
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/insight", r.URL.Path)
		gotRequestID = r.Header.Get(httpclient.HeaderRequestID)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"성수 상권 리포트","content":"본문"}`))
	}))
	defer srv.Close()

	reg := NewRegistry(time.Second)
	require.NoError(t, reg.Register(NewHTTPAdapter("consulting-service", TextInsight, srv.URL, "/api/v1/insight", time.Second)))

	ctx := trace.Ensure(context.Background(), "trace-http")
	res, err := reg.Invoke(ctx, TextInsight, "consulting-service", Request{
		BrandID:    7,
		Consulting: &consulting.Payload{BrandID: 7, Consulting: "업종: bakery"},
	})
	require.NoError(t, err)

	assert.Equal(t, "성수 상권 리포트", res["title"])
	assert.Equal(t, "trace-http", gotRequestID)
	assert.Equal(t, "consulting-service", got.Provider)
	assert.Equal(t, TextInsight, got.Capability)
	assert.Equal(t, int64(7), got.BrandID)
	require.NotNil(t, got.Payload)
	assert.Equal(t, "업종: bakery", got.Payload.Consulting)
}

func TestHTTPAdapterImageBytesRoundTrip(t *testing.T) {
	var got httpInvokeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"labels":["빵"]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("vision-service", ImageAnalysis, srv.URL, "", time.Second)
	res, err := a.Invoke(context.Background(), Request{BrandID: 3, Image: []byte{0x89, 0x50}, MimeType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, []byte{0x89, 0x50}, got.ImageBytes)
	assert.Equal(t, "image/png", got.MimeType)
	assert.Nil(t, got.Payload)
	assert.Equal(t, []any{"빵"}, res["labels"])
}

func TestHTTPAdapterStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusBadRequest, `{"error":"unsupported image"}`, ErrProviderRejected},
		{http.StatusUnprocessableEntity, `nope`, ErrProviderRejected},
		{http.StatusTooManyRequests, ``, ErrProviderUnavailable},
		{http.StatusBadGateway, ``, ErrProviderUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))

		a := NewHTTPAdapter("svc", TextInsight, srv.URL, "/x", time.Second)
		_, err := a.Invoke(context.Background(), textRequest())
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}
}

func TestHTTPAdapterAcceptsAny2xx(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"title":"성수 리포트"}`))
		}))

		a := NewHTTPAdapter("svc", TextInsight, srv.URL, "/x", time.Second)
		res, err := a.Invoke(context.Background(), textRequest())
		require.NoError(t, err, "status %d", status)
		assert.Equal(t, "성수 리포트", res["title"])
		srv.Close()
	}
}

func TestHTTPAdapterMalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1,2,3`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("svc", TextInsight, srv.URL, "/x", time.Second)
	_, err := a.Invoke(context.Background(), textRequest())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHTTPAdapterConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	reg := NewRegistry(time.Second)
	require.NoError(t, reg.Register(NewHTTPAdapter("down", TextInsight, url, "/x", time.Second)))
	_, err := reg.Invoke(context.Background(), TextInsight, "down", textRequest())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
