package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/raushankrgupta/fitly-comfy-tryon/comfy"
	"github.com/raushankrgupta/fitly-comfy-tryon/comfy/comfytest"
	"github.com/raushankrgupta/fitly-comfy-tryon/config"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/poller"
	"github.com/raushankrgupta/fitly-comfy-tryon/poller/pollertest"
	"github.com/raushankrgupta/fitly-comfy-tryon/registry"
	"github.com/raushankrgupta/fitly-comfy-tryon/results"
	"github.com/raushankrgupta/fitly-comfy-tryon/tryon"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"github.com/raushankrgupta/fitly-comfy-tryon/workflow"
	"go.uber.org/zap/zaptest"
)

type testAPI struct {
	engine  *comfytest.Server
	service *tryon.Service
	handler *Handler
	router  http.Handler
}

func newTestAPI(t *testing.T, steps ...comfytest.Step) *testAPI {
	t.Helper()
	engine := comfytest.NewServer(steps...)
	t.Cleanup(engine.Close)

	logger := zaptest.NewLogger(t)
	tmpl, err := workflow.DefaultTemplate()
	if err != nil {
		t.Fatal(err)
	}
	client := comfy.NewClient(engine.URL, 5*time.Second, logger)
	svc := tryon.NewService(
		registry.New(),
		results.NewStore(),
		tryon.NewSubmitter(client, tmpl, utils.ImageNormalizer(2048), logger),
		poller.New(client, config.DefaultSettings(), logger, poller.WithClock(&pollertest.InstantClock{})),
		logger,
	)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	h := &Handler{
		Service:    svc,
		Downloader: results.NewDownloader(nil, logger),
		Logger:     logger,
	}
	return &testAPI{engine: engine, service: svc, handler: h, router: NewRouter(h)}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func fileRequest(t *testing.T, path, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// prepare attaches a file to the blank entry of c and selects it.
func (a *testAPI) prepare(t *testing.T, c models.Category, name string) models.UploadEntry {
	t.Helper()
	list, err := a.service.Registry.List(c)
	if err != nil || len(list) == 0 {
		t.Fatalf("list %s: %v", c, err)
	}
	id := list[0].ID

	rec := a.do(t, fileRequest(t, "/uploads/"+string(c)+"/"+id+"/file", name, pngBytes(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("attach %s: %d %s", c, rec.Code, rec.Body)
	}
	rec = a.do(t, httptest.NewRequest(http.MethodPost, "/uploads/"+string(c)+"/"+id+"/select", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("select %s: %d %s", c, rec.Code, rec.Body)
	}
	return decode[models.UploadEntry](t, rec)
}

func TestTryOnFlow(t *testing.T) {
	a := newTestAPI(t, comfytest.Processing(), comfytest.Completed("out123.png"))
	a.engine.SetImage("out123.png", []byte("result-bytes"))

	if e := a.prepare(t, models.CategoryModel, "m.png"); !e.Selected || e.File == nil || e.File.Name != "m.png" {
		t.Fatalf("model entry = %+v", e)
	}
	a.prepare(t, models.CategoryUpper, "u.png")

	rec := a.do(t, httptest.NewRequest(http.MethodPost, "/try-on", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("try-on: %d %s", rec.Code, rec.Body)
	}
	started := decode[models.ResultEntry](t, rec)
	if started.Status != models.ResultProcessing || !strings.HasPrefix(started.FileName, "Result_upper_") {
		t.Errorf("started = %+v", started)
	}
	a.service.Wait()

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/results", nil))
	list := decode[[]models.ResultEntry](t, rec)
	if len(list) != 1 || list[0].Status != models.ResultCompleted || list[0].ImageURL != a.engine.URL+"/view?filename=out123.png" {
		t.Fatalf("results = %+v", list)
	}

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/results/"+started.ID+"/download", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "result-bytes" {
		t.Fatalf("download: %d %q", rec.Code, rec.Body)
	}
	wantDisp := `attachment; filename=` + started.FileName + `.png`
	if got := rec.Header().Get("Content-Disposition"); got != wantDisp {
		t.Errorf("Content-Disposition = %q, want %q", got, wantDisp)
	}

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/results/"+started.ID+"/preview", nil))
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "inline") {
		t.Errorf("preview disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/status", nil))
	if st := decode[StatusResponse](t, rec); st.Status != string(models.StateCompleted) {
		t.Errorf("status = %+v", st)
	}

	rec = a.do(t, httptest.NewRequest(http.MethodDelete, "/results/"+started.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/results/"+started.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	a := newTestAPI(t)
	model, _ := a.service.Registry.List(models.CategoryModel)

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"submit without selection", httptest.NewRequest(http.MethodPost, "/try-on", nil), http.StatusBadRequest},
		{"unknown category", httptest.NewRequest(http.MethodPost, "/uploads/shoes", nil), http.StatusBadRequest},
		{"unknown entry", httptest.NewRequest(http.MethodPost, "/uploads/model/nope/select", nil), http.StatusNotFound},
		{"select without file", httptest.NewRequest(http.MethodPost, "/uploads/model/"+model[0].ID+"/select", nil), http.StatusConflict},
		{"attach non-image", fileRequest(t, "/uploads/model/"+model[0].ID+"/file", "notes.txt", []byte("hello, not an image at all")), http.StatusUnsupportedMediaType},
		{"unknown result", httptest.NewRequest(http.MethodGet, "/results/missing/download", nil), http.StatusNotFound},
		{"import disabled", httptest.NewRequest(http.MethodPost, "/uploads/upper/x/import?url=https://shop/p", nil), http.StatusNotImplemented},
		{"gallery disabled", httptest.NewRequest(http.MethodGet, "/gallery", nil), http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
			if body := decode[map[string]string](t, rec); body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
	if a.engine.Requests() != 0 {
		t.Errorf("engine saw %d requests", a.engine.Requests())
	}
}

func TestUploadEntryLifecycle(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, httptest.NewRequest(http.MethodPost, "/uploads/dress", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d", rec.Code)
	}
	added := decode[models.UploadEntry](t, rec)

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/uploads/dress", nil))
	if list := decode[[]models.UploadEntry](t, rec); len(list) != 2 || list[1].ID != added.ID {
		t.Fatalf("list = %+v", list)
	}

	rec = a.do(t, httptest.NewRequest(http.MethodDelete, "/uploads/dress/"+added.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: %d", rec.Code)
	}

	rec = a.do(t, httptest.NewRequest(http.MethodGet, "/uploads", nil))
	all := decode[map[string][]models.UploadEntry](t, rec)
	if len(all) != 4 || len(all["dress"]) != 1 {
		t.Errorf("all = %+v", all)
	}
}

type fakeImporter struct {
	file *models.ImageFile
	url  string
}

func (f *fakeImporter) Import(ctx context.Context, url string, index int) (*models.ImageFile, *models.Product, error) {
	f.url = url
	return f.file, &models.Product{URL: url, Title: "Linen Shirt", Images: []string{url + "/1.png"}}, nil
}

func TestImportGarment(t *testing.T) {
	a := newTestAPI(t)
	img, err := utils.NewImageFile("shirt.png", pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	imp := &fakeImporter{file: img}
	a.handler.Importer = imp
	upper, _ := a.service.Registry.List(models.CategoryUpper)

	req := httptest.NewRequest(http.MethodPost, "/uploads/upper/"+upper[0].ID+"/import", strings.NewReader(`{"url":"https://shop.example/p/1"}`))
	rec := a.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body)
	}
	resp := decode[ImportResponse](t, rec)
	if imp.url != "https://shop.example/p/1" || resp.Entry.File == nil || resp.Entry.File.Name != "shirt.png" || resp.Product.Title != "Linen Shirt" {
		t.Errorf("resp = %+v", resp)
	}

	model, _ := a.service.Registry.List(models.CategoryModel)
	req = httptest.NewRequest(http.MethodPost, "/uploads/model/"+model[0].ID+"/import?url=https://shop.example/p/1", nil)
	if rec := a.do(t, req); rec.Code != http.StatusBadRequest {
		t.Errorf("model import: %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	prev := config.JWTSecret
	config.JWTSecret = "test-secret"
	t.Cleanup(func() { config.JWTSecret = prev })

	a := newTestAPI(t)
	a.handler.AuthEnabled = true
	a.router = NewRouter(a.handler)

	if rec := a.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz: %d", rec.Code)
	}
	if rec := a.do(t, httptest.NewRequest(http.MethodGet, "/status", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	if rec := a.do(t, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: %d", rec.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-7",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(config.JWTSecret))
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := a.do(t, req); rec.Code != http.StatusOK {
		t.Errorf("valid token: %d %s", rec.Code, rec.Body)
	}
}

func TestCORSPreflight(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, httptest.NewRequest(http.MethodOptions, "/try-on", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d %v", rec.Code, rec.Header())
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	if _, err := GetUserIDFromContext(context.Background()); !errors.Is(err, errNoUser) {
		t.Errorf("want errNoUser, got %v", err)
	}
	ctx := context.WithValue(context.Background(), userIDKey, "user-3")
	if id, err := GetUserIDFromContext(ctx); err != nil || id != "user-3" {
		t.Errorf("GetUserIDFromContext = %q, %v", id, err)
	}
}
