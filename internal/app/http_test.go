package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	svc, _, _ := newTestService()
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(server.Close)
	return server, svc
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("body = %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestWorksheetRoutesRequireAuth(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/worksheets", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/session", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["authenticated"] != false {
		t.Errorf("authenticated = %v, want false", body["authenticated"])
	}
}

func TestWorksheetHTTPFlow(t *testing.T) {
	server, svc := newTestServer(t)

	sess, err := svc.CreateSession(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	token := sess.Token

	resp, created := doJSON(t, http.MethodPost, server.URL+"/api/worksheets", token, map[string]any{
		"title":      "Fractions",
		"subject":    "Math",
		"layoutMode": "blocks",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %v", resp.StatusCode, created)
	}
	worksheetID, _ := created["id"].(string)
	if worksheetID == "" {
		t.Fatalf("no worksheet id in %v", created)
	}

	resp, list := doJSON(t, http.MethodGet, server.URL+"/api/worksheets", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if items, ok := list["worksheets"].([]any); !ok || len(items) != 1 {
		t.Errorf("worksheets = %v", list["worksheets"])
	}

	base := fmt.Sprintf("%s/api/worksheets/%s", server.URL, worksheetID)

	resp, dispatched := doJSON(t, http.MethodPost, base+"/actions", token, map[string]any{
		"type":      "add-block",
		"blockType": "multiple-choice",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("actions status = %d: %v", resp.StatusCode, dispatched)
	}
	blockID, _ := dispatched["newBlockId"].(string)
	if blockID == "" {
		t.Fatalf("no newBlockId in %v", dispatched)
	}

	resp, _ = doJSON(t, http.MethodPut, base+"/heights", token, map[string]any{
		"heights": map[string]float64{blockID: 180},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("heights status = %d", resp.StatusCode)
	}

	resp, pages := doJSON(t, http.MethodGet, base+"/pages", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pages status = %d", resp.StatusCode)
	}
	if pages["pageCount"] != float64(1) {
		t.Errorf("pageCount = %v, want 1", pages["pageCount"])
	}
	numbers, _ := pages["activityNumbers"].(map[string]any)
	if numbers[blockID] != float64(1) {
		t.Errorf("activityNumbers = %v", numbers)
	}

	resp, point := doJSON(t, http.MethodPost, base+"/toolbar-position", token, map[string]any{
		"anchor":   map[string]float64{"Top": 300, "Left": 100, "Width": 400, "Height": 80},
		"viewport": map[string]float64{"Top": 0, "Left": 0, "Width": 1280, "Height": 800},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toolbar status = %d", resp.StatusCode)
	}
	if _, ok := point["Top"]; !ok {
		t.Errorf("toolbar payload = %v", point)
	}

	resp, errBody := doJSON(t, http.MethodGet, server.URL+"/api/worksheets/ws_missing", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing worksheet status = %d: %v", resp.StatusCode, errBody)
	}

	resp, _ = doJSON(t, http.MethodDelete, base, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, base, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", resp.StatusCode)
	}
}

func TestHistoryHTTPRoutes(t *testing.T) {
	server, svc := newTestServer(t)

	sess, err := svc.CreateSession(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	token := sess.Token

	_, created := doJSON(t, http.MethodPost, server.URL+"/api/worksheets", token, map[string]any{"title": "Draft"})
	worksheetID, _ := created["id"].(string)
	base := fmt.Sprintf("%s/api/worksheets/%s", server.URL, worksheetID)

	doJSON(t, http.MethodPatch, base, token, map[string]any{"title": "Final"})

	resp, body := doJSON(t, http.MethodGet, base+"/history", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", resp.StatusCode)
	}
	revisions, _ := body["revisions"].([]any)
	if len(revisions) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revisions))
	}

	oldest, _ := revisions[len(revisions)-1].(map[string]any)
	hash, _ := oldest["hash"].(string)

	resp, restored := doJSON(t, http.MethodPost, base+"/history/restore", token, map[string]any{"hash": hash})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restore status = %d: %v", resp.StatusCode, restored)
	}
	if restored["title"] != "Draft" {
		t.Errorf("restored title = %v, want Draft", restored["title"])
	}

	t.Run("restore without hash is rejected", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, base+"/history/restore", token, map[string]any{})
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
	})
}
