package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/log"
)

// panelHandler serves canned player_api.php responses keyed by action.
func panelHandler(t *testing.T, responses map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/player_api.php" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("username") != "user" || r.URL.Query().Get("password") != "pass" {
			t.Errorf("credentials not forwarded: %s", r.URL.RawQuery)
		}
		action := r.URL.Query().Get("action")
		body, ok := responses[action]
		if !ok {
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

const accountOK = `{
	"user_info": {"username": "user", "status": "Active", "auth": 1, "exp_date": "1924992000", "max_connections": "2"},
	"server_info": {"url": "http://stream-host"}
}`

func testResponses() map[string]string {
	return map[string]string{
		"":                    accountOK,
		"get_live_categories": `[{"category_id": 4, "category_name": "News"}]`,
		"get_live_streams":    `[{"stream_id": 101, "name": "World News", "category_id": "4", "added": "1700000000"}]`,
		"get_vod_categories":  `[{"category_id": "7", "category_name": "Films"}]`,
		"get_vod_streams":     `[{"stream_id": "201", "name": "Heat Wave", "category_id": 7, "container_extension": "mkv"}]`,
		"get_series_categories": `[{"category_id": "9", "category_name": "Shows"}]`,
		"get_series":            `[{"series_id": 301, "name": "Dark Tales", "category_id": "9", "cover": "http://img/1.png"}]`,
	}
}

func testClient(t *testing.T, responses map[string]string) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(panelHandler(t, responses))
	t.Cleanup(srv.Close)
	return NewClient(log.Null(), WithHTTPClient(srv.Client())), srv.URL
}

func testCfg(baseURL string) domain.PlaylistConfig {
	return domain.PlaylistConfig{BaseURL: baseURL, Username: "user", Password: "pass"}
}

func TestFetchCatalog(t *testing.T) {
	c, baseURL := testClient(t, testResponses())

	got, err := c.FetchCatalog(context.Background(), testCfg(baseURL))
	if err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}

	if got.UserInfo.Status != "Active" || got.UserInfo.MaxConns != 2 {
		t.Errorf("user info = %+v", got.UserInfo)
	}

	live := got.Streams[domain.ContentLive]
	if len(live) != 1 {
		t.Fatalf("live streams = %d, want 1", len(live))
	}
	// Numeric and quoted ids both decode; stream URL is constructed from the
	// advertised server URL.
	if live[0].ID != "101" || live[0].CategoryID != "4" {
		t.Errorf("live stream = %+v", live[0])
	}
	if want := "http://stream-host/live/user/pass/101.ts"; live[0].URL != want {
		t.Errorf("live URL = %s, want %s", live[0].URL, want)
	}
	if live[0].Added != 1700000000 {
		t.Errorf("added = %d", live[0].Added)
	}

	vod := got.Streams[domain.ContentVOD]
	if len(vod) != 1 || vod[0].ID != "201" {
		t.Fatalf("vod streams = %+v", vod)
	}
	if want := "http://stream-host/movie/user/pass/201.mkv"; vod[0].URL != want {
		t.Errorf("vod URL = %s, want %s", vod[0].URL, want)
	}

	series := got.Streams[domain.ContentSeries]
	if len(series) != 1 || series[0].ID != "301" || series[0].URL != "" {
		t.Errorf("series streams = %+v", series)
	}

	cats := got.Categories[domain.ContentLive]
	if len(cats) != 1 || cats[0].ID != "4" || cats[0].Name != "News" {
		t.Errorf("live categories = %+v", cats)
	}
}

func TestFetchCatalogAuthRejected(t *testing.T) {
	responses := testResponses()
	responses[""] = `{"user_info": {"auth": 0, "message": "account expired"}}`
	c, baseURL := testClient(t, responses)

	_, err := c.FetchCatalog(context.Background(), testCfg(baseURL))
	if err == nil {
		t.Fatal("expected auth error")
	}
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("error = %v, want ErrFetchFailed", err)
	}
}

func TestFetchCatalogPartialFailure(t *testing.T) {
	// Series endpoints are broken; live and vod still come through.
	responses := testResponses()
	delete(responses, "get_series_categories")
	delete(responses, "get_series")
	c, baseURL := testClient(t, responses)

	got, err := c.FetchCatalog(context.Background(), testCfg(baseURL))
	if err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}
	if len(got.Streams[domain.ContentLive]) != 1 || len(got.Streams[domain.ContentVOD]) != 1 {
		t.Error("surviving content types missing")
	}
	if _, ok := got.Streams[domain.ContentSeries]; ok {
		t.Error("broken content type present in result")
	}
}

func TestFetchCatalogAllTypesFail(t *testing.T) {
	c, baseURL := testClient(t, map[string]string{"": accountOK})

	_, err := c.FetchCatalog(context.Background(), testCfg(baseURL))
	if err == nil {
		t.Fatal("expected error when no content type is fetchable")
	}
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("error = %v, want ErrFetchFailed", err)
	}
}

func TestFlexDecoding(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"quoted", `{"category_id": "12"}`, "12"},
		{"numeric", `{"category_id": 12}`, "12"},
		{"null", `{"category_id": null}`, ""},
		{"missing", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dto categoryDTO
			if err := json.Unmarshal([]byte(tt.json), &dto); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if string(dto.CategoryID) != tt.want {
				t.Errorf("category_id = %q, want %q", dto.CategoryID, tt.want)
			}
		})
	}
}
