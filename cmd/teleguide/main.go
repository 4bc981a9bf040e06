package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/pkoski/teleguide/internal/cache"
	"github.com/pkoski/teleguide/internal/catalog"
	"github.com/pkoski/teleguide/internal/config"
	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/export"
	applog "github.com/pkoski/teleguide/internal/log"
	"github.com/pkoski/teleguide/internal/provider/xtream"
	"github.com/pkoski/teleguide/internal/store"
	boltstore "github.com/pkoski/teleguide/internal/store/bolt"
	"github.com/pkoski/teleguide/internal/store/sqlite"
	"github.com/pkoski/teleguide/internal/tui"
	"golang.org/x/term"
)

type addCmd struct {
	URL      string `arg:"positional,required" help:"provider base URL"`
	Username string `arg:"-u,--username,required" help:"provider username"`
	Password string `arg:"-p,--password" help:"provider password (prompted when omitted)"`
	Name     string `arg:"-n,--name" help:"display name for the playlist"`
}

type removeCmd struct {
	ID string `arg:"positional,required" help:"playlist id (see 'list')"`
}

type listCmd struct{}

type refreshCmd struct {
	ID string `arg:"positional" help:"playlist id; all playlists when omitted"`
}

type searchCmd struct {
	Query string `arg:"positional,required" help:"name substring to search for"`
	Limit int    `arg:"-l,--limit" default:"50" help:"maximum results"`
}

type exportCmd struct {
	Type     string `arg:"positional,required" help:"content type: live, vod, or series"`
	Category string `arg:"-c,--category" help:"category id; whole content type when omitted"`
	Out      string `arg:"-o,--out" help:"output file (stdout when omitted)"`
}

type defaultCmd struct {
	ID string `arg:"positional,required" help:"playlist id to make the default"`
}

type browseCmd struct{}

type args struct {
	Add     *addCmd     `arg:"subcommand:add" help:"add or reload a playlist"`
	Remove  *removeCmd  `arg:"subcommand:remove" help:"remove a playlist"`
	List    *listCmd    `arg:"subcommand:list" help:"list known playlists"`
	Refresh *refreshCmd `arg:"subcommand:refresh" help:"re-ingest playlists"`
	Search  *searchCmd  `arg:"subcommand:search" help:"search record names"`
	Export  *exportCmd  `arg:"subcommand:export" help:"export records as M3U"`
	Default *defaultCmd `arg:"subcommand:default" help:"set the default playlist"`
	Browse  *browseCmd  `arg:"subcommand:browse" help:"open the interactive browser"`
}

func (args) Description() string {
	return "teleguide - catalog engine and browser for Xtream content providers"
}

// app bundles the wired component graph.
type app struct {
	cfg     *config.Config
	session *catalog.Session
	router  *store.Router
	cache   *cache.Cache
	bolt    *boltstore.Store
	logger  *slog.Logger
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := applog.Setup(&cfg.Logging)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Catalog.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// The fallback store must open; the indexed store is allowed to fail and
	// is then routed around.
	bolt, err := boltstore.Open(cfg.FallbackPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("open fallback store: %w", err)
	}

	var primary domain.CatalogStore
	sq, sqErr := sqlite.Open(cfg.IndexPath(), logger)
	if sqErr == nil {
		primary = sq
	}
	router := store.NewRouter(primary, bolt, sqErr, logger)

	cached, err := cache.New(router, cache.Options{
		TTL:              cfg.Cache.TTL,
		PageCapacity:     cfg.Cache.PageCapacity,
		CountCapacity:    cfg.Cache.CountCapacity,
		CategoryCapacity: cfg.Cache.CategoryCapacity,
	}, logger)
	if err != nil {
		return nil, err
	}

	provider := xtream.NewClient(logger, xtream.WithStreamExt(cfg.Catalog.StreamExt))
	session := catalog.NewSession(provider, cached, bolt, catalog.Options{
		MaxPlaylists: cfg.Catalog.MaxPlaylists,
		BatchSize:    cfg.Catalog.BatchSize,
	}, logger)

	return &app{cfg: cfg, session: session, router: router, cache: cached, bolt: bolt, logger: logger}, nil
}

func (a *app) close() {
	_ = a.cache.Close()
}

func main() {
	var cli args
	parser := arg.MustParse(&cli)

	if cli.Add == nil && cli.Remove == nil && cli.List == nil && cli.Refresh == nil &&
		cli.Search == nil && cli.Export == nil && cli.Default == nil && cli.Browse == nil {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	a, err := buildApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer a.close()

	ctx := context.Background()
	switch {
	case cli.Add != nil:
		err = runAdd(ctx, a, cli.Add)
	case cli.Remove != nil:
		err = runRemove(ctx, a, cli.Remove)
	case cli.List != nil:
		err = runList(a)
	case cli.Refresh != nil:
		err = runRefresh(ctx, a, cli.Refresh)
	case cli.Search != nil:
		err = runSearch(ctx, a, cli.Search)
	case cli.Export != nil:
		err = runExport(ctx, a, cli.Export)
	case cli.Default != nil:
		err = runDefault(a, cli.Default)
	case cli.Browse != nil:
		err = runBrowse(a)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runAdd(ctx context.Context, a *app, cmd *addCmd) error {
	password := cmd.Password
	if password == "" {
		fmt.Print("password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	res := a.session.LoadPlaylist(ctx, domain.PlaylistConfig{
		Name:     cmd.Name,
		BaseURL:  strings.TrimSuffix(cmd.URL, "/"),
		Username: cmd.Username,
		Password: password,
	})
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}

	st := res.Playlist.Stats
	fmt.Printf("loaded %s: %s records (%s dropped)\n",
		res.Playlist.Name,
		humanize.Comma(int64(st.Total)),
		humanize.Comma(int64(st.Dropped)))
	for _, t := range domain.ContentTypes {
		fmt.Printf("  %-8s %s\n", t, humanize.Comma(int64(st.PerType[t])))
	}
	return nil
}

func runRemove(ctx context.Context, a *app, cmd *removeCmd) error {
	res := a.session.RemovePlaylist(ctx, cmd.ID)
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Println("removed", cmd.ID)
	return nil
}

func runList(a *app) error {
	playlists := a.session.Playlists()
	if len(playlists) == 0 {
		fmt.Println("no playlists; use 'add' first")
		return nil
	}
	def, _ := a.session.DefaultPlaylist()
	for _, p := range playlists {
		marker := " "
		if def != nil && def.ID == p.ID {
			marker = "*"
		}
		fmt.Printf("%s %-40s %8s records  loaded %s\n",
			marker, p.ID,
			humanize.Comma(int64(p.Stats.Total)),
			humanize.Time(p.LoadedAt))
	}
	if a.router.Degraded() {
		fmt.Println("\nnote: indexed store unavailable, running on fallback store")
	}
	return nil
}

func runRefresh(ctx context.Context, a *app, cmd *refreshCmd) error {
	ids := []string{cmd.ID}
	if cmd.ID == "" {
		ids = ids[:0]
		for _, p := range a.session.Playlists() {
			ids = append(ids, p.ID)
		}
	}
	for _, id := range ids {
		res := a.session.RefreshPlaylist(ctx, id)
		if !res.Success {
			fmt.Fprintf(os.Stderr, "refresh %s: %s\n", id, res.Message)
			continue
		}
		fmt.Printf("refreshed %s: %s records\n", id, humanize.Comma(int64(res.Playlist.Stats.Total)))
	}
	return nil
}

func runSearch(ctx context.Context, a *app, cmd *searchCmd) error {
	res := a.session.SearchContent(ctx, cmd.Query, cmd.Limit)
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	for _, r := range res.Records {
		code := r.EpisodeCode()
		if code != "" {
			code = " " + code
		}
		fmt.Printf("%-8s %s%s\n", r.ContentType, r.Name, code)
	}
	fmt.Printf("\n%d results\n", len(res.Records))
	return nil
}

func runExport(ctx context.Context, a *app, cmd *exportCmd) error {
	t := domain.ContentType(cmd.Type)
	if !t.Valid() {
		return fmt.Errorf("unknown content type %q", cmd.Type)
	}
	def, ok := a.session.DefaultPlaylist()
	if !ok {
		return domain.ErrPlaylistNotFound
	}

	out := os.Stdout
	if cmd.Out != "" {
		f, err := os.Create(cmd.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	exporter := export.New(a.cache, a.logger)
	n, err := exporter.WriteCategory(ctx, out, def.ID, t, cmd.Category)
	if err != nil {
		return err
	}
	if cmd.Out != "" {
		fmt.Printf("wrote %s records to %s\n", humanize.Comma(int64(n)), cmd.Out)
	}
	return nil
}

func runDefault(a *app, cmd *defaultCmd) error {
	res := a.session.SetDefaultPlaylist(cmd.ID)
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Println("default playlist set to", cmd.ID)
	return nil
}

func runBrowse(a *app) error {
	if _, ok := a.session.DefaultPlaylist(); !ok {
		return fmt.Errorf("no playlists; use 'add' first")
	}

	var refresher *catalog.Refresher
	if a.cfg.Refresh.Enabled {
		r, err := catalog.NewRefresher(a.session, a.cfg.Refresh.Interval, a.logger)
		if err == nil {
			r.Start()
			refresher = r
		}
	}
	if refresher != nil {
		defer refresher.Stop()
	}

	p := tea.NewProgram(tui.NewModel(a.session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
