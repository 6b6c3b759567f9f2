package handler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fishinglog/internal/db"
	"github.com/fishinglog/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

type fakeGeocoder struct {
	mu         sync.Mutex
	calls      int
	blockCall  int
	entered    chan struct{}
	release    chan struct{}
	place      service.Place
	searchErr  error
	reverseErr error
}

func (f *fakeGeocoder) Search(_ context.Context, query string) (service.Place, error) {
	if f.searchErr != nil {
		return service.Place{}, f.searchErr
	}
	place := f.place
	place.DisplayName = query + ", New Zealand"
	return place, nil
}

func (f *fakeGeocoder) Reverse(_ context.Context, lat, lon float64) (service.Place, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if call == f.blockCall {
		close(f.entered)
		<-f.release
	}
	if f.reverseErr != nil {
		return service.Place{Lat: lat, Lon: lon, DisplayName: service.FormatCoordinates(lat, lon)}, f.reverseErr
	}
	return service.Place{Lat: lat, Lon: lon, DisplayName: fmt.Sprintf("place #%d", call)}, nil
}

type fakeForecaster struct {
	forecast service.DailyForecast
	err      error
	lastDate string
}

func (f *fakeForecaster) Daily(_ context.Context, lat, lon float64, date string) (service.DailyForecast, error) {
	f.lastDate = date
	return f.forecast, f.err
}

type testServer struct {
	api    *API
	engine *gin.Engine
	photos *service.LocalPhotoStore
}

func setupHandlerTest(t *testing.T, configure func(*Options)) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(db.Options{
		Path:   fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", name),
		Silent: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })

	photos, err := service.NewLocalPhotoStore(t.TempDir())
	if err != nil {
		t.Fatalf("create photo store: %v", err)
	}

	opts := Options{
		DB:                gdb,
		Photos:            photos,
		PhotoMaxDimension: 64,
		Location:          time.UTC,
		DefaultPlace:      service.Place{Lat: -36.8485, Lon: 174.7633, DisplayName: "Auckland"},
	}
	if configure != nil {
		configure(&opts)
	}
	api := NewAPI(opts)
	api.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(sessions.Sessions("fishlog_test", cookie.NewStore([]byte("test-secret"))))
	api.RegisterRoutes(r.Group("/api"))

	return testServer{api: api, engine: r, photos: photos}
}

func (s testServer) do(t *testing.T, method, path string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	return rr
}

func (s testServer) doJSON(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return s.do(t, method, path, reader, "application/json", cookies...)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func multipartBody(t *testing.T, fields map[string][]string, fileField, fileName string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(file)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
