package hvclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(url string) *Client {
	return New(url, 5*time.Second, 5*time.Second)
}

func TestFindClosest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getClosestImage/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2014-01-01T23:59:59Z" {
			t.Errorf("date param = %q", got)
		}
		if got := r.URL.Query().Get("sourceId"); got != "13" {
			t.Errorf("sourceId param = %q", got)
		}
		w.Write([]byte(`{"id":"36275490","date":"2014-01-01 23:59:54","name":"AIA 304"}`))
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL).FindClosest(context.Background(),
		time.Date(2014, 1, 1, 23, 59, 59, 0, time.UTC), 13)
	if err != nil {
		t.Fatalf("FindClosest failed: %v", err)
	}
	if obs.ID != 36275490 {
		t.Errorf("ID = %d, want 36275490", obs.ID)
	}
	if obs.Name != "AIA 304" {
		t.Errorf("Name = %q, want AIA 304", obs.Name)
	}
	want := time.Date(2014, 1, 1, 23, 59, 54, 0, time.UTC)
	if !obs.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", obs.Date, want)
	}
}

func TestFindClosestNumericID(t *testing.T) {
	// some archive deployments return the id as a JSON number
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":36275490,"date":"2014-01-01 23:59:54","name":"AIA 304"}`))
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL).FindClosest(context.Background(), time.Now(), 13)
	if err != nil {
		t.Fatalf("FindClosest failed: %v", err)
	}
	if obs.ID != 36275490 {
		t.Errorf("ID = %d, want 36275490", obs.ID)
	}
}

func TestFindClosestNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error status", http.StatusInternalServerError, `server error`},
		{"archive error payload", http.StatusOK, `{"error":"no images found"}`},
		{"missing id", http.StatusOK, `{"date":"2014-01-01 00:00:00"}`},
		{"zero id", http.StatusOK, `{"id":"0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).FindClosest(context.Background(), time.Now(), 999)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("error %v does not wrap ErrNotFound", err)
			}
		})
	}
}

func TestFetchJP2(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x00, 0x0c, 0x6a, 0x50, 0x20, 0x20}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getJP2Image/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "42" {
			t.Errorf("id param = %q", got)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	data, err := testClient(srv.URL).FetchJP2(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchJP2 failed: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("payload length = %d, want %d", len(data), len(payload))
	}
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getJP2Image/":
			w.WriteHeader(http.StatusBadGateway)
		case "/getPNG/":
			// 200 with an empty body is still a failure
		case "/getJP2Header/":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	ctx := context.Background()

	var fe *FetchError

	if _, err := c.FetchJP2(ctx, 1); !errors.As(err, &fe) {
		t.Errorf("FetchJP2: want *FetchError, got %v", err)
	} else if fe.Status != http.StatusBadGateway {
		t.Errorf("FetchJP2 status = %d, want 502", fe.Status)
	}

	if _, err := c.FetchPNG(ctx, 1); !errors.As(err, &fe) {
		t.Errorf("FetchPNG: want *FetchError for empty body, got %v", err)
	}

	if _, err := c.FetchHeader(ctx, 1); !errors.As(err, &fe) {
		t.Errorf("FetchHeader: want *FetchError, got %v", err)
	}
}

func TestFetchHeader(t *testing.T) {
	xml := `<?xml version="1.0"?><meta><fits><TELESCOP>SDO/AIA</TELESCOP></fits></meta>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(xml))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).FetchHeader(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchHeader failed: %v", err)
	}
	if text != xml {
		t.Errorf("header text = %q", text)
	}
}

func TestLookupSourceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getDataSources/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"SDO": {"AIA": {"304": {"sourceId": 13}}},
			"SOHO": {"LASCO": {"C2": {"white-light": {"sourceId": 4}}}}
		}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	ctx := context.Background()

	// three-level path (no detector, as with SDO/AIA)
	id, err := c.LookupSourceID(ctx, "SDO", "AIA", "304")
	if err != nil {
		t.Fatalf("LookupSourceID failed: %v", err)
	}
	if id != 13 {
		t.Errorf("sourceId = %d, want 13", id)
	}

	// four-level path with detector
	id, err = c.LookupSourceID(ctx, "SOHO", "LASCO", "C2", "white-light")
	if err != nil {
		t.Fatalf("LookupSourceID failed: %v", err)
	}
	if id != 4 {
		t.Errorf("sourceId = %d, want 4", id)
	}

	if _, err := c.LookupSourceID(ctx, "SDO", "EVE", "raw"); err == nil {
		t.Error("expected error for unknown path")
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testClient(srv.URL).FindClosest(ctx, time.Now(), 13); err == nil {
		t.Error("expected error from cancelled context")
	}
}
