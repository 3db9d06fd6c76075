package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func getStats(t *testing.T, ts *httptest.Server) statsResponse {
	t.Helper()
	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET /v1/stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	stats := getStats(t, ts)
	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if stats.ByStatus == nil || stats.ByFormat == nil {
		t.Error("count maps should be empty objects, not null")
	}
}

func TestGetStatsPopulated(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	postCompile(t, ts, "", "text/plain", "ok")
	postCompile(t, ts, "?format=dvi", "text/plain", "ok")
	postCompile(t, ts, "", "text/plain", `\fail`)
	srv.engine.Wait()

	stats := getStats(t, ts)
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByStatus["completed"] != 2 || stats.ByStatus["failed"] != 1 {
		t.Errorf("by_status = %v", stats.ByStatus)
	}
	if stats.ByFormat["pdf"] != 2 || stats.ByFormat["dvi"] != 1 {
		t.Errorf("by_format = %v", stats.ByFormat)
	}
	if got := stats.SuccessRate; got < 0.66 || got > 0.67 {
		t.Errorf("success_rate = %v, want 2/3", got)
	}
	if stats.ByErrorKind["syntax"] != 1 {
		t.Errorf("by_error_kind = %v", stats.ByErrorKind)
	}
}
