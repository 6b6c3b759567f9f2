package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
)

type catchResponse struct {
	Catch struct {
		ID      uint     `json:"id"`
		Species string   `json:"species"`
		Gear    []string `json:"gear"`
		Photo   string   `json:"photo"`
	} `json:"catch"`
}

func TestCatchMultipartPhotoLifecycle(t *testing.T) {
	s := setupHandlerTest(t, nil)

	var trip tripResponse
	decodeBody(t, s.doJSON(t, http.MethodPost, "/api/trips", `{"date":"2025-03-10"}`), &trip)

	body, contentType := multipartBody(t, map[string][]string{
		"species": {"Snapper"},
		"gear":    {"Soft bait, Jig"},
		"weight":  {"3.2kg"},
	}, "photo", "snapper.png", testPNG(t, 200, 100))
	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/catches", trip.Trip.ID), body, contentType)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created catchResponse
	decodeBody(t, rr, &created)
	if created.Catch.Photo == "" || len(created.Catch.Gear) != 2 || created.Catch.Gear[1] != "Jig" {
		t.Fatalf("unexpected catch: %+v", created.Catch)
	}

	photoPath := fmt.Sprintf("/api/catches/%d/photo", created.Catch.ID)
	rr = s.doJSON(t, http.MethodGet, photoPath, "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("expected jpeg photo, got %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte{0xFF, 0xD8}) {
		t.Fatal("photo is not a JPEG stream")
	}

	body, contentType = multipartBody(t, map[string][]string{
		"species":     {"Snapper"},
		"removePhoto": {"true"},
	}, "", "", nil)
	rr = s.do(t, http.MethodPut, fmt.Sprintf("/api/catches/%d", created.Catch.ID), body, contentType)
	if rr.Code != http.StatusOK {
		t.Fatalf("update catch: %d %s", rr.Code, rr.Body.String())
	}
	var updated catchResponse
	decodeBody(t, rr, &updated)
	if updated.Catch.Photo != "" {
		t.Fatalf("expected photo removed, got %q", updated.Catch.Photo)
	}
	if rr := s.doJSON(t, http.MethodGet, photoPath, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after photo removal, got %d", rr.Code)
	}
}

func TestCatchValidation(t *testing.T) {
	s := setupHandlerTest(t, nil)
	var trip tripResponse
	decodeBody(t, s.doJSON(t, http.MethodPost, "/api/trips", `{"date":"2025-03-10"}`), &trip)
	catchesPath := fmt.Sprintf("/api/trips/%d/catches", trip.Trip.ID)

	if rr := s.doJSON(t, http.MethodPost, catchesPath, `{"species":"  "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing species, got %d", rr.Code)
	}

	body, contentType := multipartBody(t, map[string][]string{"species": {"Kahawai"}}, "photo", "notes.txt", []byte("not an image"))
	if rr := s.do(t, http.MethodPost, catchesPath, body, contentType); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid image, got %d: %s", rr.Code, rr.Body.String())
	}

	if rr := s.doJSON(t, http.MethodPost, "/api/trips/999/catches", `{"species":"Kahawai"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown trip, got %d", rr.Code)
	}
}

func TestCatchPhotoWithoutStore(t *testing.T) {
	s := setupHandlerTest(t, func(o *Options) { o.Photos = nil })
	var trip tripResponse
	decodeBody(t, s.doJSON(t, http.MethodPost, "/api/trips", `{"date":"2025-03-10"}`), &trip)

	body, contentType := multipartBody(t, map[string][]string{"species": {"Kahawai"}}, "photo", "k.png", testPNG(t, 8, 8))
	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/trips/%d/catches", trip.Trip.ID), body, contentType)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without photo store, got %d", rr.Code)
	}
}
