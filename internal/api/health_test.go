package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func getHealth(t *testing.T, ts *httptest.Server) (int, healthResponse) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealthzBeforeFirstCompile(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	status, body := getHealth(t, ts)
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if body.Status != "ok" || body.WorkspaceRoot != "" {
		t.Errorf("body = %+v, want ok without workspace root", body)
	}
}

func TestHealthzWorkspaceRoot(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	postCompile(t, ts, "", "text/plain", "x")
	srv.engine.Wait()

	status, body := getHealth(t, ts)
	if status != http.StatusOK || body.WorkspaceRoot == "" {
		t.Fatalf("status = %d, body = %+v, want ok with root", status, body)
	}

	if err := os.RemoveAll(body.WorkspaceRoot); err != nil {
		t.Fatal(err)
	}
	if status, _ := getHealth(t, ts); status != http.StatusServiceUnavailable {
		t.Errorf("status after root removal = %d, want 503", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	postCompile(t, ts, "", "text/plain", "x")
	srv.engine.Wait()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	body := string(bodyBytes)
	for _, name := range []string{
		"texwrap_http_requests_total",
		"texwrap_http_request_duration_seconds",
		"texwrap_compiles_total",
		"texwrap_workspaces_allocated_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestListBackends(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/backends")
	if err != nil {
		t.Fatalf("GET /v1/backends: %v", err)
	}
	defer resp.Body.Close()

	var body backendsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Active != "test" {
		t.Errorf("active = %q, want test", body.Active)
	}
	if len(body.Backends) != 1 || body.Backends[0].Capabilities.Name != "stub" {
		t.Errorf("backends = %+v", body.Backends)
	}
}
