package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raushankrgupta/fitly-comfy-tryon/config"
)

func TestFetchImage(t *testing.T) {
	png := encodePNG(t, 4, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/img/shirt.png", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(png) })
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>not an image</html>")) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := FetchImage(context.Background(), srv.Client(), srv.URL+"/img/shirt.png?w=720")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if f.Name != "shirt.png" || f.ContentType != "image/png" || f.Size() != len(png) {
		t.Errorf("file = %s %s %d", f.Name, f.ContentType, f.Size())
	}

	if _, err := FetchImage(context.Background(), srv.Client(), srv.URL+"/page.html"); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("want ErrInvalidImage, got %v", err)
	}
	if _, err := FetchImage(context.Background(), srv.Client(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestResolveShortenedURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/s/abc", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/product/1", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/product/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := ResolveShortenedURL(context.Background(), srv.Client(), srv.URL+"/s/abc")
	if err != nil {
		t.Fatalf("ResolveShortenedURL: %v", err)
	}
	if got != srv.URL+"/product/1" {
		t.Errorf("resolved = %s", got)
	}
}

func TestPresignImageURL_WithoutBucket(t *testing.T) {
	prev := config.AWSBucketName
	config.AWSBucketName = ""
	t.Cleanup(func() { config.AWSBucketName = prev })

	for _, in := range []string{"", "https://cdn/x.png", "tryons/u/x.png"} {
		if got := PresignImageURL(context.Background(), in); got != in {
			t.Errorf("PresignImageURL(%q) = %q", in, got)
		}
	}
	if _, err := UploadFileToS3(context.Background(), nil, "k", "image/png"); !errors.Is(err, ErrS3Disabled) {
		t.Errorf("want ErrS3Disabled, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		logger, err := NewLogger(env, "bogus")
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		if !logger.Core().Enabled(0) || logger.Core().Enabled(-1) {
			t.Errorf("%s: level should fall back to info", env)
		}
	}
}

func TestGetCollection_NotConnected(t *testing.T) {
	if _, err := GetCollection("fitly", "tryons"); !errors.Is(err, ErrMongoNotConnected) {
		t.Errorf("want ErrMongoNotConnected, got %v", err)
	}
}
