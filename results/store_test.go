package results

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"go.uber.org/zap/zaptest"
)

func TestStore_BeginAndComplete(t *testing.T) {
	s := NewStore()
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	e := s.Begin("p1", models.CategoryUpper)
	if e.Status != models.ResultProcessing || e.ImageURL != "" {
		t.Fatalf("new entry = %+v", e)
	}
	if e.FileName != "Result_upper_1700000000000" {
		t.Errorf("FileName = %q", e.FileName)
	}

	done, err := s.Complete(e.ID, "http://engine/view?filename=x.png")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.ResultCompleted || done.ImageURL == "" {
		t.Errorf("completed entry = %+v", done)
	}

	// A second completion is a no-op.
	again, _ := s.Complete(e.ID, "http://other")
	if again.ImageURL != done.ImageURL {
		t.Error("completed entry changed")
	}
}

func TestStore_RemoveKeepsOrder(t *testing.T) {
	s := NewStore()
	a := s.Begin("a", models.CategoryUpper)
	b := s.Begin("b", models.CategoryLower)
	c := s.Begin("c", models.CategoryDress)

	if err := s.Remove(b.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != c.ID {
		t.Errorf("unexpected order after remove: %+v", list)
	}
	if err := s.Remove(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if _, err := s.Get(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get removed: want ErrNotFound, got %v", err)
	}
}

func TestStore_ListIsACopy(t *testing.T) {
	s := NewStore()
	s.Begin("a", models.CategoryUpper)
	list := s.List()
	list[0].FileName = "changed"
	if s.List()[0].FileName == "changed" {
		t.Error("List exposed internal state")
	}
}

func TestDownloader_SaveToDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filename") != "out123.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-data"))
	}))
	defer srv.Close()

	d := NewDownloader(srv.Client(), zaptest.NewLogger(t))
	e := models.ResultEntry{ID: "r1", Status: models.ResultCompleted, FileName: "Result_upper_1", ImageURL: srv.URL + "/view?filename=out123.png"}

	dir := t.TempDir()
	path, err := d.SaveToDir(context.Background(), e, dir)
	if err != nil {
		t.Fatalf("SaveToDir: %v", err)
	}
	if path != filepath.Join(dir, "Result_upper_1.png") {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "png-data" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloader_Failures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	d := NewDownloader(srv.Client(), zaptest.NewLogger(t))

	processing := models.ResultEntry{ID: "p", Status: models.ResultProcessing}
	if _, err := d.Open(context.Background(), processing); !errors.Is(err, ErrNotReady) {
		t.Errorf("want ErrNotReady, got %v", err)
	}

	missing := models.ResultEntry{ID: "m", Status: models.ResultCompleted, FileName: "x", ImageURL: srv.URL + "/view?filename=gone.png"}
	if _, err := d.Open(context.Background(), missing); !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("want ErrDownloadFailed, got %v", err)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct{ url, ct, want string }{
		{"http://e/view?filename=a.PNG", "", ".png"},
		{"https://bucket.s3/generated/x.jpg?X-Amz=1", "", ".jpg"},
		{"http://e/view?filename=noext", "image/jpeg", ".jpg"},
		{"http://e/view?filename=noext", "application/octet-stream", ""},
	}
	for _, tt := range tests {
		if got := extension(tt.url, tt.ct); got != tt.want {
			t.Errorf("extension(%q, %q) = %q, want %q", tt.url, tt.ct, got, tt.want)
		}
	}
}
