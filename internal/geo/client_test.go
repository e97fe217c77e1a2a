package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupDecodesRegion(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"continent_code":"EU","country_code":"DE"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	region, err := client.Lookup(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if region.ContinentCode != "EU" {
		t.Fatalf("region = %+v", region)
	}
	if gotQuery != "format=json&ip=203.0.113.7" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestLookupNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Lookup(context.Background(), "203.0.113.7"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestLookupMalformedBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Lookup(context.Background(), "203.0.113.7"); err == nil {
		t.Fatal("expected error on malformed payload")
	}
}

func TestLookupUnreachableProviderIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Lookup(context.Background(), "203.0.113.7"); err == nil {
		t.Fatal("expected error when the provider is down")
	}
}
