// Package xtream is a client for Xtream-codes compatible catalog panels.
package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkoski/teleguide/internal/domain"
)

const defaultTimeout = 90 * time.Second

// Client implements domain.Provider against the player_api.php surface.
type Client struct {
	httpClient *http.Client
	streamExt  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStreamExt sets the container extension used in live stream URLs.
func WithStreamExt(ext string) Option {
	return func(c *Client) { c.streamExt = ext }
}

// NewClient creates an Xtream API client.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		streamExt:  "ts",
		logger:     logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchCatalog performs the account handshake and retrieves categories and
// streams for every content type. Individual content types that fail to fetch
// are skipped with a warning; the handshake failing is fatal.
func (c *Client) FetchCatalog(ctx context.Context, cfg domain.PlaylistConfig) (*domain.RawCatalog, error) {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	account, err := c.handshake(ctx, base, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	streamBase := strings.TrimSuffix(account.ServerInfo.ServerURL, "/")
	if streamBase == "" {
		streamBase = strings.TrimSuffix(account.ServerInfo.URL, "/")
	}
	if streamBase == "" {
		streamBase = base
	}

	catalog := &domain.RawCatalog{
		UserInfo: domain.UserInfo{
			Username:  account.UserInfo.Username,
			Status:    account.UserInfo.Status,
			ExpiresAt: int64(account.UserInfo.ExpDate),
			MaxConns:  int(account.UserInfo.MaxConns),
		},
		Categories: make(map[domain.ContentType][]domain.RawCategory),
		Streams:    make(map[domain.ContentType][]domain.RawStream),
	}

	type fetchSpec struct {
		contentType  domain.ContentType
		catAction    string
		streamAction string
		decode       func(body []byte, streamBase string, cfg domain.PlaylistConfig) ([]domain.RawStream, error)
	}
	specs := []fetchSpec{
		{domain.ContentLive, "get_live_categories", "get_live_streams", c.decodeLive},
		{domain.ContentVOD, "get_vod_categories", "get_vod_streams", c.decodeVOD},
		{domain.ContentSeries, "get_series_categories", "get_series", c.decodeSeries},
	}

	fetched := 0
	for _, spec := range specs {
		cats, err := c.fetchCategories(ctx, base, cfg, spec.catAction)
		if err != nil {
			c.logger.Warn("category fetch failed", "contentType", spec.contentType, "error", err)
			continue
		}
		body, err := c.get(ctx, apiURL(base, cfg, spec.streamAction))
		if err != nil {
			c.logger.Warn("stream fetch failed", "contentType", spec.contentType, "error", err)
			continue
		}
		streams, err := spec.decode(body, streamBase, cfg)
		if err != nil {
			c.logger.Warn("stream decode failed", "contentType", spec.contentType, "error", err)
			continue
		}
		catalog.Categories[spec.contentType] = cats
		catalog.Streams[spec.contentType] = streams
		fetched++
		c.logger.Debug("fetched content type",
			"contentType", spec.contentType, "categories", len(cats), "streams", len(streams))
	}

	if fetched == 0 {
		return nil, fmt.Errorf("%w: no content type could be fetched", domain.ErrFetchFailed)
	}
	return catalog, nil
}

func (c *Client) handshake(ctx context.Context, base string, cfg domain.PlaylistConfig) (*accountDTO, error) {
	body, err := c.get(ctx, apiURL(base, cfg, ""))
	if err != nil {
		return nil, err
	}
	var account accountDTO
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("decode account info: %w", err)
	}
	if account.UserInfo.Auth == 0 {
		msg := account.UserInfo.Message
		if msg == "" {
			msg = "authentication rejected"
		}
		return nil, fmt.Errorf("provider refused credentials: %s", msg)
	}
	return &account, nil
}

func (c *Client) fetchCategories(ctx context.Context, base string, cfg domain.PlaylistConfig, action string) ([]domain.RawCategory, error) {
	body, err := c.get(ctx, apiURL(base, cfg, action))
	if err != nil {
		return nil, err
	}
	var dtos []categoryDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]domain.RawCategory, 0, len(dtos))
	for _, d := range dtos {
		if d.CategoryID == "" {
			continue
		}
		out = append(out, domain.RawCategory{
			ID:   string(d.CategoryID),
			Name: strings.TrimSpace(d.CategoryName),
		})
	}
	return out, nil
}

func (c *Client) decodeLive(body []byte, streamBase string, cfg domain.PlaylistConfig) ([]domain.RawStream, error) {
	var dtos []liveStreamDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.RawStream, 0, len(dtos))
	for _, d := range dtos {
		id := strconv.FormatInt(int64(d.StreamID), 10)
		raw, _ := json.Marshal(d)
		out = append(out, domain.RawStream{
			ID:         id,
			Name:       d.Name,
			CategoryID: string(d.CategoryID),
			Type:       domain.ContentLive,
			URL:        streamBase + "/live/" + cfg.Username + "/" + cfg.Password + "/" + id + "." + c.streamExt,
			LogoURL:    d.StreamIcon,
			Added:      int64(d.Added),
			Raw:        raw,
		})
	}
	return out, nil
}

func (c *Client) decodeVOD(body []byte, streamBase string, cfg domain.PlaylistConfig) ([]domain.RawStream, error) {
	var dtos []vodStreamDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.RawStream, 0, len(dtos))
	for _, d := range dtos {
		id := strconv.FormatInt(int64(d.StreamID), 10)
		ext := d.Container
		if ext == "" {
			ext = "mp4"
		}
		raw, _ := json.Marshal(d)
		out = append(out, domain.RawStream{
			ID:         id,
			Name:       d.Name,
			CategoryID: string(d.CategoryID),
			Type:       domain.ContentVOD,
			URL:        streamBase + "/movie/" + cfg.Username + "/" + cfg.Password + "/" + id + "." + ext,
			LogoURL:    d.StreamIcon,
			Added:      int64(d.Added),
			Raw:        raw,
		})
	}
	return out, nil
}

func (c *Client) decodeSeries(body []byte, _ string, _ domain.PlaylistConfig) ([]domain.RawStream, error) {
	var dtos []seriesDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.RawStream, 0, len(dtos))
	for _, d := range dtos {
		id := strconv.FormatInt(int64(d.SeriesID), 10)
		raw, _ := json.Marshal(d)
		// Series entries are containers; episode URLs come from a separate
		// get_series_info call made at playback time, not at ingest.
		out = append(out, domain.RawStream{
			ID:         id,
			Name:       d.Name,
			CategoryID: string(d.CategoryID),
			Type:       domain.ContentSeries,
			LogoURL:    d.Cover,
			Added:      int64(d.LastModified),
			Raw:        raw,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func apiURL(base string, cfg domain.PlaylistConfig, action string) string {
	u := base + "/player_api.php?username=" + url.QueryEscape(cfg.Username) +
		"&password=" + url.QueryEscape(cfg.Password)
	if action != "" {
		u += "&action=" + url.QueryEscape(action)
	}
	return u
}
