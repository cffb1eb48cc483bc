// Command versetrack reports the revisions at which a chapter or verse range of
// a versioned USFM book changed.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/versetrack/core/errors"
	"github.com/FocuswithJustin/versetrack/core/history"
	"github.com/FocuswithJustin/versetrack/core/region"
	"github.com/FocuswithJustin/versetrack/core/sqlite"
	"github.com/FocuswithJustin/versetrack/internal/api"
	"github.com/FocuswithJustin/versetrack/internal/archive"
	"github.com/FocuswithJustin/versetrack/internal/host"
	"github.com/FocuswithJustin/versetrack/internal/locate"
	"github.com/FocuswithJustin/versetrack/internal/logging"
	"github.com/FocuswithJustin/versetrack/internal/merge"
	"github.com/FocuswithJustin/versetrack/internal/release"
	"github.com/FocuswithJustin/versetrack/internal/store"
	"github.com/FocuswithJustin/versetrack/internal/validation"
)

const version = "0.4.0"

// Globals are flags shared by every command.
type Globals struct {
	Config    kong.ConfigFlag `help:"Load flag defaults from a JSON file" type:"path"`
	LogLevel  string          `name:"log-level" help:"Log level" default:"info" enum:"debug,info,warn,error" env:"VERSETRACK_LOG_LEVEL"`
	LogFormat string          `name:"log-format" help:"Log format" default:"text" enum:"text,json" env:"VERSETRACK_LOG_FORMAT"`
	Cache     string          `help:"Revision cache database; empty disables caching" type:"path" env:"VERSETRACK_CACHE"`
	Source    string          `help:"History source" default:"auto" enum:"auto,git,hg,archive" env:"VERSETRACK_SOURCE"`
	Archive   string          `help:"History archive used with --source=archive" type:"path" env:"VERSETRACK_ARCHIVE"`

	Stdout io.Writer `kong:"-"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Locate  LocateCmd    `cmd:"" default:"withargs" help:"List revisions that changed a chapter or verse range"`
	Extract ExtractCmd   `cmd:"" help:"Print a chapter or verse range of a document"`
	Export  ExportCmd    `cmd:"" help:"Write a document's history to a snapshot archive"`
	Serve   ServeCmd     `cmd:"" help:"Serve change queries over HTTP and WebSocket"`
	Cache   CacheGroup   `cmd:"" help:"Revision cache maintenance"`
	Merge   MergeGroup   `cmd:"" help:"Three-way merge staging"`
	Release ReleaseGroup `cmd:"" help:"Release tag arithmetic"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// CacheGroup contains revision cache operations.
type CacheGroup struct {
	Stats CacheStatsCmd `cmd:"" help:"Show cache size"`
	Clear CacheClearCmd `cmd:"" help:"Remove all cached revisions"`
}

// MergeGroup contains merge staging operations.
type MergeGroup struct {
	Stage MergeStageCmd `cmd:"" help:"Stage base, local and other files for a merge tool"`
	List  MergeListCmd  `cmd:"" help:"List staged merges"`
}

// ReleaseGroup contains release tag operations.
type ReleaseGroup struct {
	Next ReleaseNextCmd `cmd:"" help:"Print the next release tag"`
}

// openSource returns the history source selected by the global flags, wrapped
// with the revision cache when one is configured. The returned func releases
// the cache.
func (g *Globals) openSource(docPath string) (history.Source, func(), error) {
	var (
		src history.Source
		err error
	)
	switch g.Source {
	case "archive":
		src, err = openArchive(g.Archive)
	case "git":
		src, err = rootedSource(docPath, history.GitDir)
	case "hg":
		src, err = rootedSource(docPath, history.HgDir)
	default:
		src, err = history.Detect(docPath)
	}
	if err != nil {
		return nil, nil, err
	}

	if g.Cache == "" {
		return src, func() {}, nil
	}
	if err := checkFileType(g.Cache); err != nil {
		return nil, nil, err
	}
	cache, err := store.Open(context.Background(), g.Cache)
	if err != nil {
		return nil, nil, err
	}
	return history.Cached(src, cache, logging.GetLogger()), func() { cache.Close() }, nil
}

func rootedSource(docPath, marker string) (history.Source, error) {
	root, _, err := history.DiscoverRoot(docPath, marker)
	if err != nil {
		return nil, err
	}
	if marker == history.HgDir {
		return history.NewHgSource(root), nil
	}
	return history.NewGitSource(root), nil
}

func openArchive(path string) (history.Source, error) {
	if path == "" {
		return nil, errors.NewValidation("archive", "--archive is required with --source=archive")
	}
	if !archive.IsSupported(path) {
		return nil, errors.NewUnsupported("archive format", path)
	}
	if err := checkFileType(path); err != nil {
		return nil, err
	}
	return archive.NewSource(path), nil
}

// checkFileType verifies that an existing file's content matches its extension.
// A file that does not exist yet passes.
func checkFileType(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.NewIO("open", path, err)
	}
	defer f.Close()
	_, err = validation.ValidateFileType(f, path)
	return err
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

// LocateCmd lists the revisions that changed a region.
type LocateCmd struct {
	Path    string `arg:"" help:"Document path (inside the archive with --source=archive)"`
	Chapter string `arg:"" help:"Chapter label, or a reference such as 3:5-7"`
	Verses  string `arg:"" optional:"" help:"Verse range such as 5 or 5-7"`
	JSON    bool   `help:"Print one JSON object per change"`
}

func (c *LocateCmd) Run(g *Globals) error {
	if err := validation.ValidatePath(c.Path); err != nil {
		return fmt.Errorf("invalid document path: %w", err)
	}
	chapter, verses := c.Chapter, c.Verses
	if verses == "" {
		if ref, err := region.ParseReference(chapter); err == nil && ref.Verses != nil {
			chapter, verses = ref.Chapter, ref.Verses.String()
		}
	}

	src, closeSource, err := g.openSource(c.Path)
	if err != nil {
		return err
	}
	defer closeSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := bufio.NewWriter(g.stdout())
	defer out.Flush()
	console := host.NewConsole(out, logging.GetLogger(), src)

	if !c.JSON {
		_, err = locate.Run(ctx, console, locate.Request{Path: c.Path, Chapter: chapter, Verses: verses})
		return err
	}

	enc := json.NewEncoder(out)
	for change, err := range locate.LocateChangedRevisions(ctx, console, c.Path, chapter, verses) {
		if err != nil {
			return err
		}
		if err := enc.Encode(change); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// ExtractCmd prints the region a selector picks out of a document.
type ExtractCmd struct {
	Path string `arg:"" help:"Document path"`
	Ref  string `arg:"" help:"Reference such as 3, 3:5 or 3:5-7"`
	Rev  string `help:"Extract from this change ID instead of the working copy"`
}

func (c *ExtractCmd) Run(g *Globals) error {
	sel, err := region.ParseReference(c.Ref)
	if err != nil {
		return err
	}

	text, err := c.document(g)
	if err != nil {
		return err
	}
	result := region.Extract(sel, text)
	if result == "" {
		return errors.NewNotFound("chapter", sel.Chapter)
	}
	_, err = io.WriteString(g.stdout(), result)
	return err
}

func (c *ExtractCmd) document(g *Globals) (string, error) {
	if c.Rev == "" {
		if err := validation.ValidateDocument(c.Path); err != nil {
			return "", err
		}
		data, err := os.ReadFile(c.Path)
		if err != nil {
			return "", errors.NewIO("read", c.Path, err)
		}
		return history.Decode(data)
	}

	src, closeSource, err := g.openSource(c.Path)
	if err != nil {
		return "", err
	}
	defer closeSource()

	ctx := context.Background()
	revs, err := src.History(ctx, c.Path)
	if err != nil {
		return "", err
	}
	for _, rev := range revs {
		if rev.ChangeID == c.Rev {
			return rev.Text(ctx)
		}
	}
	return "", errors.NewNotFound("revision", c.Rev)
}

// ExportCmd writes every revision of a document into a snapshot archive that
// --source=archive can read back.
type ExportCmd struct {
	Path string `arg:"" help:"Document path in a working copy"`
	Out  string `required:"" short:"o" help:"Output archive (.tar.xz or .tar.gz)" type:"path"`
	As   string `help:"Path to record in the archive (default: relative to the repository root)"`
}

func (c *ExportCmd) Run(g *Globals) error {
	src, closeSource, err := g.openSource(c.Path)
	if err != nil {
		return err
	}
	defer closeSource()

	name := c.As
	if name == "" {
		name, err = repoRelative(src, c.Path)
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	revs, err := src.History(ctx, c.Path)
	if err != nil {
		return err
	}

	w, err := archive.Create(c.Out)
	if err != nil {
		return err
	}
	for _, rev := range history.Sorted(revs) {
		content, err := rev.Content(ctx)
		if err != nil {
			w.Close()
			return errors.Wrap(err, "revision "+rev.ChangeID)
		}
		snap := archive.Snapshot{Seq: rev.SortKey, ChangeID: rev.ChangeID, Path: name, Content: content}
		if err := w.Add(snap); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "exported %d revisions of %s to %s\n", len(revs), name, c.Out)
	return nil
}

func repoRelative(src history.Source, docPath string) (string, error) {
	rooted, ok := src.(interface{ Root() string })
	if !ok {
		return filepath.ToSlash(filepath.Clean(docPath)), nil
	}
	abs, err := filepath.Abs(docPath)
	if err != nil {
		return "", errors.NewIO("resolve", docPath, err)
	}
	rel, err := filepath.Rel(rooted.Root(), abs)
	if err != nil {
		return "", errors.NewIO("resolve", docPath, err)
	}
	return filepath.ToSlash(rel), nil
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Addr           string        `help:"Listen address" default:":8080" env:"VERSETRACK_ADDR"`
	Root           string        `help:"Directory that document paths are resolved against" default:"." type:"existingdir"`
	APIKey         string        `name:"api-key" help:"Require this key in X-API-Key" env:"VERSETRACK_API_KEY"`
	RateLimit      int           `help:"Requests per minute per client (0 disables)" default:"0"`
	RateBurst      int           `help:"Rate limit burst size" default:"10"`
	AllowedOrigins []string      `help:"Extra WebSocket origins to accept" sep:","`
	HistoryTTL     time.Duration `help:"Reuse revision lists for this long (0 disables)" default:"0s"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg := api.Config{
		Addr:              c.Addr,
		Root:              c.Root,
		RateLimitRequests: c.RateLimit,
		RateLimitBurst:    c.RateBurst,
		Auth:              api.AuthConfig{Enabled: c.APIKey != "", APIKey: c.APIKey},
		AllowedOrigins:    c.AllowedOrigins,
		HistoryTTL:        c.HistoryTTL,
	}

	var cache *store.Store
	if g.Cache != "" {
		if err := checkFileType(g.Cache); err != nil {
			return err
		}
		var err error
		if cache, err = store.Open(context.Background(), g.Cache); err != nil {
			return err
		}
		defer cache.Close()
	}

	// One shared cache; sources are opened per request.
	opener := func(docPath string) (history.Source, error) {
		var (
			src history.Source
			err error
		)
		switch g.Source {
		case "archive":
			src, err = openArchive(g.Archive)
		case "git", "hg":
			marker := history.GitDir
			if g.Source == "hg" {
				marker = history.HgDir
			}
			src, err = rootedSource(docPath, marker)
		default:
			src, err = history.Detect(docPath)
		}
		if err != nil || cache == nil {
			return src, err
		}
		return history.Cached(src, cache, logging.GetLogger()), nil
	}

	api.Version = version
	srv, err := api.New(cfg, opener)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}

// CacheStatsCmd prints cache statistics.
type CacheStatsCmd struct{}

func (c *CacheStatsCmd) Run(g *Globals) error {
	if g.Cache == "" {
		return errors.NewValidation("cache", "--cache is required")
	}
	s, err := store.Open(context.Background(), g.Cache)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "revisions: %d\nblobs: %d\nraw bytes: %d\nstored bytes: %d\ndriver: %s\n",
		st.Revisions, st.Blobs, st.RawBytes, st.StoredBytes, sqlite.DriverType())
	return nil
}

// CacheClearCmd empties the cache.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(g *Globals) error {
	if g.Cache == "" {
		return errors.NewValidation("cache", "--cache is required")
	}
	s, err := store.Open(context.Background(), g.Cache)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Clear(context.Background())
}

// MergeStageCmd stages merge inputs.
type MergeStageCmd struct {
	Base  string `arg:"" help:"Common ancestor" type:"existingfile"`
	Local string `arg:"" help:"Local version" type:"existingfile"`
	Other string `arg:"" help:"Other version" type:"existingfile"`
}

func (c *MergeStageCmd) Run(g *Globals) error {
	console := host.NewConsole(g.stdout(), logging.GetLogger(), nil)
	mc, err := merge.NewContext(console, c.Base, c.Local, c.Other)
	if err != nil {
		return err
	}
	entry, err := mc.Stage()
	if err != nil {
		return err
	}
	return console.Write(entry.Dir)
}

// MergeListCmd lists staged merges for the repository enclosing Path.
type MergeListCmd struct {
	Path string `arg:"" optional:"" default:"." help:"Any path inside the repository" type:"path"`
}

func (c *MergeListCmd) Run(g *Globals) error {
	console := host.NewConsole(g.stdout(), logging.GetLogger(), nil)
	mc, err := merge.NewContext(console, c.Path, c.Path, c.Path)
	if err != nil {
		return err
	}
	pending, err := mc.Pending()
	if err != nil {
		return err
	}
	for _, e := range pending {
		line := fmt.Sprintf("%d\t%s\t%s", e.ID, e.StagedAt.Format("2006-01-02 15:04:05"), e.Local)
		if err := console.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseNextCmd prints the tag that follows the latest matching one.
type ReleaseNextCmd struct {
	Level string `arg:"" help:"major, minor, patch or build" enum:"major,minor,patch,build"`
	Match string `help:"Tag glob" default:"v*"`
	Dir   string `help:"Directory inside the repository" default:"." type:"existingdir"`
}

func (c *ReleaseNextCmd) Run(g *Globals) error {
	level, err := release.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	next, err := release.Next(context.Background(), c.Dir, c.Match, level)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.stdout(), next)
	return err
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := sqlite.GetInfo()
	mode := "pure Go"
	if info.IsCGO {
		mode = "cgo"
	}
	fmt.Fprintf(g.stdout(), "versetrack version %s (sqlite: %s, %s)\n", version, info.Package, mode)
	return nil
}

// configPaths are JSON files read for flag defaults, lowest priority first.
func configPaths() []string {
	paths := []string{".versetrack.json"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append([]string{filepath.Join(dir, "versetrack.json")}, paths...)
	}
	return paths
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	opts := []kong.Option{
		kong.Name("versetrack"),
		kong.Description("Find the revisions that changed a chapter or verse range of a USFM book"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(kong.JSON, configPaths()...),
	}
	return kong.New(cli, append(opts, options...)...)
}

func initLogging(g *Globals) error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(initLogging(&cli.Globals))

	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
