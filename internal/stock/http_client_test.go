package stock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchVideo(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos/search":
			gotAuth = r.Header.Get("Authorization")
			fmt.Fprintf(w, `{"videos":[{"duration":12,"width":1920,"height":1080,
				"video_files":[{"link":%q,"width":3840},{"link":%q,"width":1280}]}]}`,
				"http://"+r.Host+"/files/4k.mp4", "http://"+r.Host+"/files/hd.mp4")
		case "/files/hd.mp4":
			w.Write([]byte("video-bytes"))
		case "/files/4k.mp4":
			t.Error("downloaded the 4k file instead of the capped one")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-token", 0, discardLogger())
	media, err := c.FetchVideo(context.Background(), "city skyline", 30, t.TempDir())
	if err != nil {
		t.Fatalf("FetchVideo: %v", err)
	}
	if gotAuth != "test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if media.DurationSec != 12 || media.MediaType != "video" {
		t.Errorf("unexpected media: %+v", media)
	}
	data, err := os.ReadFile(media.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("downloaded content = %q", data)
	}
}

func TestFetchVideoFallbackQuery(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos/search":
			q := r.URL.Query().Get("query")
			queries = append(queries, q)
			if q == "sunset beach waves crashing" {
				w.Write([]byte(`{"videos":[]}`))
				return
			}
			fmt.Fprintf(w, `{"videos":[{"duration":5,"video_files":[{"link":%q,"width":1280}]}]}`,
				"http://"+r.Host+"/f.mp4")
		default:
			w.Write([]byte("x"))
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", 0, discardLogger())
	if _, err := c.FetchVideo(context.Background(), "sunset beach waves crashing", 30, t.TempDir()); err != nil {
		t.Fatalf("FetchVideo: %v", err)
	}
	if len(queries) < 2 || queries[1] != "sunset beach" {
		t.Errorf("fallback queries = %v", queries)
	}
}

func TestFetchVideoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"videos":[]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", 0, discardLogger())
	_, err := c.FetchVideo(context.Background(), "nothing matches this", 30, t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/search":
			fmt.Fprintf(w, `{"photos":[{"width":1600,"height":900,"src":{"large":%q}}]}`,
				"http://"+r.Host+"/img.jpg")
		default:
			w.Write([]byte("jpeg"))
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", 0, discardLogger())
	media, err := c.FetchImage(context.Background(), "mountains", t.TempDir())
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if media.Width != 1600 || media.MediaType != "image" {
		t.Errorf("unexpected media: %+v", media)
	}
}

func TestFetchErrorRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", 0, discardLogger())
	_, err := c.FetchVideo(context.Background(), "anything", 30, t.TempDir())

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !fetchErr.IsRetryable() {
		t.Error("429 should be retryable")
	}

	permanent := &FetchError{StatusCode: http.StatusUnauthorized}
	if permanent.IsRetryable() {
		t.Error("401 should be permanent")
	}
}

func TestFallbackQueries(t *testing.T) {
	got := fallbackQueries("modern office workspace background")
	want := []string{"modern office workspace background", "modern office", "modern"}
	if len(got) != len(want) {
		t.Fatalf("fallbackQueries = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := fallbackQueries("cat"); len(got) != 1 || got[0] != "cat" {
		t.Errorf("short query = %v", got)
	}
}

func TestStubClient(t *testing.T) {
	c := NewStubClient(discardLogger())
	media, err := c.FetchVideo(context.Background(), "any query", 10, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(media.Path); err != nil {
		t.Errorf("placeholder not written: %v", err)
	}
}
