package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_ConvertsHTMLToMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Quarterly Report</h1><p>Revenue is <strong>up</strong>.</p></body></html>`))
	}))
	defer srv.Close()

	page, err := New().Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, srv.URL, page.URL)
	assert.Contains(t, page.Markdown, "# Quarterly Report")
	assert.Contains(t, page.Markdown, "**up**")
}

func TestFetch_SetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "reportflow-fetch/1.0", gotUA)
}

func TestFetch_FollowsRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, srv.URL+"/new", http.StatusMovedPermanently)
			return
		}
		w.Write([]byte("<p>landed</p>"))
	}))
	defer srv.Close()

	page, err := New().Fetch(context.Background(), srv.URL+"/old")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", page.URL, "URL reflects the redirect target")
	assert.Contains(t, page.Markdown, "landed")
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_EmptyURL(t *testing.T) {
	_, err := New().Fetch(context.Background(), "   ")
	assert.Error(t, err)
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		chunk := make([]byte, 1024*1024)
		for i := 0; i < 11; i++ {
			w.Write(chunk)
		}
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size")
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := New(WithTimeout(50 * time.Millisecond))

	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
