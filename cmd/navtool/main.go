// navtool is a CLI utility for inspecting navigation grids.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-nav/internal/assets"
	"github.com/Faultbox/midgard-nav/internal/config"
	"github.com/Faultbox/midgard-nav/internal/game/world"
	"github.com/Faultbox/midgard-nav/internal/logger"
	"github.com/Faultbox/midgard-nav/internal/nav/grid"
	"github.com/Faultbox/midgard-nav/internal/nav/pathsearch"
	"github.com/Faultbox/midgard-nav/internal/nav/terrain"
	"github.com/Faultbox/midgard-nav/pkg/formats"
	"github.com/Faultbox/midgard-nav/pkg/grf"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "path":
		cmdPath(cfg, args)
	case "los":
		cmdLOS(cfg, args)
	case "bench":
		cmdBench(cfg, args)
	case "convert":
		cmdConvert(args)
	case "pack":
		cmdPack(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`navtool - navigation grid utility

Usage:
  navtool [flags] <command> [options]

Commands:
  info <map>                         Show grid size and category counts
  path <map> <x1> <y1> <x2> <y2>     Find a route and draw it
  los <map> <x1> <y1> <x2> <y2>      Check line of sight
  bench <map>                        Time random route requests
  convert <map.txt> <out.gat>        Write a text map as a GAT file
  pack <out.grf> <map>...            Pack maps into a GRF archive as data/<name>.gat

Maps are .gat files, text maps ('.' open, '#' impassable, '~' dash-only) or
maps inside an archive (data.grf:prontera).

Flags:
  -config <file>   Config file (default ./navigation.yaml)
  -debug           Debug logging
  -dash            Allow dash maneuvers
  -threshold <n>   Collision threshold for line of sight
  -no-compress     Keep raw distance fields
  -metrics <addr>  Serve Prometheus metrics

Examples:
  navtool info data/prontera.gat
  navtool info data.grf:prontera
  navtool -dash path arena.txt 0 0 9 9
  navtool -metrics :9464 bench data/prontera.gat -n 5000`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// openMap builds a terrain source from a map inside a GRF archive
// (archive.grf:name), a .gat file or a text map.
func openMap(path string) (terrain.Source, error) {
	if archive, name, ok := strings.Cut(path, ".grf:"); ok {
		m := assets.NewManager()
		if err := m.AddArchive(archive + ".grf"); err != nil {
			return nil, err
		}
		return m.Source(name), nil
	}

	if strings.EqualFold(filepath.Ext(path), ".gat") {
		gat, err := formats.ParseGATFile(path)
		if err != nil {
			return nil, err
		}
		return terrain.NewGATSource(gat), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	layers, err := terrain.ParseText(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return terrain.NewStaticSource(layers), nil
}

// loadNavigator opens the map and loads it as the current area.
func loadNavigator(cfg *config.Config, path string, opts ...pathsearch.Option) (*world.Navigator, error) {
	source, err := openMap(path)
	if err != nil {
		return nil, err
	}
	nav := world.NewNavigator(func() config.NavigationConfig { return cfg.Navigation }, opts...)
	if err := nav.LoadArea(filepath.Base(path), source); err != nil {
		return nil, err
	}
	return nav, nil
}

var errBadCoords = errors.New("expected four integer coordinates")

// parseCells reads two cells from x1 y1 x2 y2.
func parseCells(args []string) (grid.Cell, grid.Cell, error) {
	if len(args) != 4 {
		return grid.Cell{}, grid.Cell{}, errBadCoords
	}
	var v [4]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return grid.Cell{}, grid.Cell{}, fmt.Errorf("%w: %q", errBadCoords, a)
		}
		v[i] = n
	}
	return grid.Cell{X: v[0], Y: v[1]}, grid.Cell{X: v[2], Y: v[3]}, nil
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: navtool info <map>")
		os.Exit(1)
	}

	nav, err := loadNavigator(cfg, args[0])
	if err != nil {
		fatal(err)
	}
	w, h := nav.Size()

	counts := make(map[grid.Category]int)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			counts[nav.CategoryAt(grid.Cell{X: x, Y: y})]++
		}
	}

	fmt.Printf("Map:     %s\n", args[0])
	fmt.Printf("Size:    %dx%d (%d cells)\n", w, h, w*h)
	fmt.Println()
	fmt.Println("Cells by category:")
	for _, cat := range []grid.Category{grid.OpenWalkable, grid.WalkableLow, grid.DashOnly, grid.Reserved3, grid.Reserved4, grid.Impassable} {
		if n := counts[cat]; n > 0 {
			fmt.Printf("  %-14s %d\n", cat, n)
		}
	}
}

func cmdPath(cfg *config.Config, args []string) {
	if len(args) < 5 {
		fmt.Fprintln(os.Stderr, "Usage: navtool path <map> <x1> <y1> <x2> <y2>")
		os.Exit(1)
	}

	nav, err := loadNavigator(cfg, args[0])
	if err != nil {
		fatal(err)
	}
	origin, dest, err := parseCells(args[1:5])
	if err != nil {
		fatal(err)
	}

	start := time.Now()
	path := nav.PathTo(origin, dest)
	elapsed := time.Since(start)

	if path == nil {
		fmt.Printf("No path from %s to %s (%v)\n", origin, dest, elapsed)
		os.Exit(2)
	}

	mc := world.NewMovementController(nav, origin)
	mc.MoveTo(dest)
	walks, dashes := 0, 0
	for {
		step, ok := mc.Next()
		if !ok {
			break
		}
		switch step.Kind {
		case world.StepDash:
			dashes++
			fmt.Printf("  dash %s -> %s over %d cells\n", step.From, step.To, len(step.Over))
		default:
			walks++
		}
	}

	fmt.Printf("Path:    %d cells (%d walks, %d dashes) in %v\n", len(path), walks, dashes, elapsed)
	if mc.Position() != dest {
		fmt.Printf("Stopped: %s (dash landing out of sight)\n", mc.Position())
	}
	fmt.Println()
	fmt.Print(render(nav, origin, path))
}

// render draws the grid with the route marked.
func render(nav *world.Navigator, origin grid.Cell, path []grid.Cell) string {
	w, h := nav.Size()
	onPath := make(map[grid.Cell]bool, len(path))
	for _, c := range path {
		onPath[c] = true
	}

	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := grid.Cell{X: x, Y: y}
			switch {
			case c == origin:
				b.WriteByte('S')
			case len(path) > 0 && c == path[len(path)-1]:
				b.WriteByte('E')
			case onPath[c]:
				b.WriteByte('*')
			default:
				b.WriteByte(glyph(nav.CategoryAt(c)))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func glyph(cat grid.Category) byte {
	switch {
	case cat.IsWalkable():
		return terrain.GlyphOpen
	case cat.IsDashOnly():
		return terrain.GlyphDash
	default:
		return terrain.GlyphImpassable
	}
}

func cmdLOS(cfg *config.Config, args []string) {
	if len(args) < 5 {
		fmt.Fprintln(os.Stderr, "Usage: navtool los <map> <x1> <y1> <x2> <y2>")
		os.Exit(1)
	}

	nav, err := loadNavigator(cfg, args[0])
	if err != nil {
		fatal(err)
	}
	a, b, err := parseCells(args[1:5])
	if err != nil {
		fatal(err)
	}

	visible := nav.CanSee(a, b)
	fmt.Printf("Line of sight %s -> %s: %v\n", a, b, visible)
	if ray, ok := nav.LastRay(); ok {
		cells := make([]string, len(ray.Visited))
		for i, c := range ray.Visited {
			cells[i] = c.String()
		}
		fmt.Printf("Visited: %s\n", strings.Join(cells, " "))
	}
}

func cmdBench(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	n := fs.Int("n", 1000, "Number of route requests")
	seed := fs.Int64("seed", 1, "Random seed")
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: navtool bench <map> [-n N] [-seed S]")
		os.Exit(1)
	}
	fs.Parse(args[1:])

	var opts []pathsearch.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		opts = append(opts, pathsearch.WithRegisterer(reg))
		serveMetrics(reg, cfg.Metrics.ListenAddr)
	}

	nav, err := loadNavigator(cfg, args[0], opts...)
	if err != nil {
		fatal(err)
	}
	w, h := nav.Size()

	// Draw endpoints from walkable cells only.
	var walkable []grid.Cell
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := grid.Cell{X: x, Y: y}
			if nav.CategoryAt(c).IsWalkable() {
				walkable = append(walkable, c)
			}
		}
	}
	if len(walkable) == 0 {
		fatal(errors.New("map has no walkable cells"))
	}

	// A few hot destinations so field reuse shows up.
	rng := rand.New(rand.NewSource(*seed))
	dests := make([]grid.Cell, 8)
	for i := range dests {
		dests[i] = walkable[rng.Intn(len(walkable))]
	}

	found := 0
	start := time.Now()
	for i := 0; i < *n; i++ {
		origin := walkable[rng.Intn(len(walkable))]
		if nav.PathTo(origin, dests[rng.Intn(len(dests))]) != nil {
			found++
		}
	}
	elapsed := time.Since(start)

	stats := nav.Stats()
	fmt.Printf("Requests: %d (%d found)\n", *n, found)
	fmt.Printf("Total:    %v\n", elapsed)
	if *n > 0 {
		fmt.Printf("Average:  %v\n", elapsed/time.Duration(*n))
	}
	fmt.Printf("Cached:   %d routes, %d direction fields, %d distance fields\n",
		stats.Routes, stats.DirectionFields, stats.DistanceFields)

	if cfg.Metrics.Enabled {
		fmt.Printf("Metrics on http://%s/metrics, Ctrl-C to exit\n", cfg.Metrics.ListenAddr)
		select {}
	}
}

func serveMetrics(reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// textToGAT reads a text map and encodes it as a GAT table.
func textToGAT(path string) ([]byte, *formats.GAT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	layers, err := terrain.ParseText(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	gat, err := formats.NewGATFromLayers(layers.Walkable, layers.Targeting)
	if err != nil {
		return nil, nil, err
	}
	out, err := gat.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return out, gat, nil
}

func cmdConvert(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: navtool convert <map.txt> <out.gat>")
		os.Exit(1)
	}

	out, gat, err := textToGAT(args[0])
	if err != nil {
		fatal(err)
	}
	if err := os.WriteFile(args[1], out, 0644); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s (%dx%d)\n", args[1], gat.Width, gat.Height)
}

// packFiles collects maps for an archive keyed by data/<name>.gat. Text maps
// are converted; .gat files are validated and stored as-is.
func packFiles(paths []string) (map[string][]byte, error) {
	files := make(map[string][]byte, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		var data []byte
		if strings.EqualFold(filepath.Ext(path), ".gat") {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if _, err := formats.ParseGAT(raw); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			data = raw
		} else {
			out, _, err := textToGAT(path)
			if err != nil {
				return nil, err
			}
			data = out
		}
		files[assets.MapPath(name)] = data
	}
	return files, nil
}

func cmdPack(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: navtool pack <out.grf> <map>...")
		os.Exit(1)
	}

	files, err := packFiles(args[1:])
	if err != nil {
		fatal(err)
	}
	if err := grf.WriteFile(args[0], files); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s (%d maps)\n", args[0], len(files))
}
