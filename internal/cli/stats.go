package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/rescale/rescale-space/internal/config"
	"github.com/rescale/rescale-space/internal/engine"
	"github.com/rescale/rescale-space/internal/geom"
	"github.com/rescale/rescale-space/internal/layout"
	"github.com/rescale/rescale-space/internal/localfs"
	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/metrics"
	"github.com/rescale/rescale-space/internal/models"
	"github.com/rescale/rescale-space/internal/progress"
	"github.com/rescale/rescale-space/internal/scheduler"
	"github.com/rescale/rescale-space/internal/util/filter"
	"github.com/rescale/rescale-space/internal/viewport"
)

// sweepOptions controls a headless render sweep.
type sweepOptions struct {
	Scale    float64
	MaxSteps int
	// OnPass sees the stats of every completed pass.
	OnPass   func(engine.Stats)
	Observer engine.StatsObserver
	Progress progress.Reporter
	Logger   *logging.Logger
}

// sweepSummary aggregates the passes of one sweep.
type sweepSummary struct {
	Items       int            `json:"items"`
	Steps       int            `json:"steps"`
	Passes      uint64         `json:"passes"`
	MaxVisible  int            `json:"maxVisible"`
	Created     int            `json:"created"`
	Updated     int            `json:"updated"`
	Removed     int            `json:"removed"`
	Failed      int            `json:"failed"`
	LinearScans int            `json:"linearScans"`
	AvgRenderMs float64        `json:"avgRenderMs"`
	MaxRenderMs float64        `json:"maxRenderMs"`
	Elements    int            `json:"elements"`
	PoolIdle    map[string]int `json:"poolIdle"`
}

func (s *sweepSummary) add(st engine.Stats) {
	s.MaxVisible = max(s.MaxVisible, st.VisibleItems)
	s.Created += st.CreatedElements
	s.Updated += st.UpdatedElements
	s.Removed += st.RemovedElements
	s.Failed += st.FailedItems
	if st.LinearScan {
		s.LinearScans++
	}
	s.AvgRenderMs += st.RenderTimeMs // summed until finish
	s.MaxRenderMs = math.Max(s.MaxRenderMs, st.RenderTimeMs)
}

// headlessSurface counts elements without drawing anything.
type headlessSurface struct {
	live int
}

func (s *headlessSurface) NewElement(models.Kind) (engine.Element, error) {
	s.live++
	return &headlessElement{surface: s}, nil
}

func (s *headlessSurface) ApplyTransform(viewport.Transform) {}
func (s *headlessSurface) Present()                          {}

type headlessElement struct{ surface *headlessSurface }

func (e *headlessElement) Bind(engine.Bindings) error        { return nil }
func (e *headlessElement) Unbind()                           {}
func (e *headlessElement) SetContent(models.Item, int) error { return nil }
func (e *headlessElement) SetBounds(geom.Rect) error         { return nil }
func (e *headlessElement) Show()                             {}
func (e *headlessElement) Hide()                             {}
func (e *headlessElement) Destroy()                          { e.surface.live-- }

// sweepOrigins returns the content-space top-left corners of a serpentine
// walk over extent with a window of w x h content pixels.
func sweepOrigins(extent geom.Rect, w, h float64) []geom.Point {
	if extent.IsEmpty() || w <= 0 || h <= 0 {
		return []geom.Point{{X: extent.Left, Y: extent.Top}}
	}
	cols := max(1, int(math.Ceil(extent.Width()/w)))
	rows := max(1, int(math.Ceil(extent.Height()/h)))
	out := make([]geom.Point, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for i := 0; i < cols; i++ {
			c := i
			if r%2 == 1 {
				c = cols - 1 - i
			}
			out = append(out, geom.Point{X: extent.Left + float64(c)*w, Y: extent.Top + float64(r)*h})
		}
	}
	return out
}

// runSweep renders items once per viewport position of a serpentine walk
// over the laid-out content, stepping frames by hand.
func runSweep(ctx context.Context, cfg config.Config, items []models.Item, opts sweepOptions) (sweepSummary, error) {
	if opts.Progress == nil {
		opts.Progress = progress.NewNoOpProgress()
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}

	var sum sweepSummary
	ticker := scheduler.NewManualTicker()
	surface := &headlessSurface{}
	e, err := engine.New(cfg, surface, engine.Services{
		Logger: opts.Logger,
		Ticker: ticker,
		Observer: engine.StatsObserverFunc(func(st engine.Stats) {
			sum.add(st)
			if opts.OnPass != nil {
				opts.OnPass(st)
			}
			if opts.Observer != nil {
				opts.Observer.ObserveRender(st)
			}
		}),
	})
	if err != nil {
		return sum, err
	}
	defer e.Dispose()

	if err := e.SetItems(items, engine.WithScale(opts.Scale)); err != nil {
		opts.Logger.Warn().Err(err).Msg("Some items were rejected")
	}
	scale := e.Transform().Scale
	origins := sweepOrigins(layout.Extent(items, cfg.ItemWidth, cfg.ItemHeight),
		cfg.ViewportWidth/scale, cfg.ViewportHeight/scale)
	if opts.MaxSteps > 0 && len(origins) > opts.MaxSteps {
		origins = origins[:opts.MaxSteps]
	}

	opts.Progress.Start(int64(len(origins)), "sweeping")
	for i, o := range origins {
		if err := ctx.Err(); err != nil {
			opts.Progress.Error(err)
			return sum, err
		}
		e.SetTransform(viewport.TransformPatch{
			TranslateX: viewport.Float(-o.X * scale),
			TranslateY: viewport.Float(-o.Y * scale),
		})
		e.ScheduleRender()
		// a pass needs one frame plus one per extra chunk
		ticker.Flush(len(items)/max(1, cfg.BatchSize) + 4)
		opts.Progress.Update(int64(i + 1))
	}
	opts.Progress.Finish()

	sum.Items = e.Len()
	sum.Steps = len(origins)
	sum.Passes = e.Stats().Passes
	if sum.Passes > 0 {
		sum.AvgRenderMs /= float64(sum.Passes)
	}
	sum.Elements = surface.live
	sum.PoolIdle = make(map[string]int)
	for kind, n := range e.PoolSizes() {
		sum.PoolIdle[kind.String()] = n
	}
	return sum, nil
}

// collectItems lists dir, or walks it with recursive, and lays the result out
// on a square-ish grid.
func collectItems(ctx context.Context, dir string, recursive bool, maxItems int, list localfs.ListOptions, match filter.Config, sortBy layout.SortBy, cfg config.Config) ([]models.Item, error) {
	var items []models.Item
	if recursive {
		err := localfs.Walk(ctx, dir, localfs.WalkOptions{ListOptions: list, SkipHiddenDirs: true},
			func(it models.Item) error {
				if !filter.Match(it, dir, match) {
					return nil
				}
				if maxItems > 0 && len(items) >= maxItems {
					return localfs.ErrLimitReached
				}
				items = append(items, it)
				return nil
			})
		if err != nil && !errors.Is(err, localfs.ErrLimitReached) {
			return nil, err
		}
	} else {
		listed, err := localfs.ListItems(ctx, dir, list)
		if err != nil {
			return nil, err
		}
		items = filter.Apply(listed, dir, match)
		if maxItems > 0 && len(items) > maxItems {
			items = items[:maxItems]
		}
	}
	return layout.Grid(items, layout.Options{
		ItemWidth:  cfg.ItemWidth,
		ItemHeight: cfg.ItemHeight,
		Margin:     cfg.ItemMargin,
		SortBy:     sortBy,
	}), nil
}

func printSummary(w io.Writer, dir string, s sweepSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Directory:\t%s\n", dir)
	fmt.Fprintf(tw, "Items:\t%d\n", s.Items)
	fmt.Fprintf(tw, "Viewport steps:\t%d\n", s.Steps)
	fmt.Fprintf(tw, "Render passes:\t%d\n", s.Passes)
	fmt.Fprintf(tw, "Max visible:\t%d\n", s.MaxVisible)
	fmt.Fprintf(tw, "Entered / updated / exited:\t%d / %d / %d\n", s.Created, s.Updated, s.Removed)
	fmt.Fprintf(tw, "Failed items:\t%d\n", s.Failed)
	fmt.Fprintf(tw, "Linear scans:\t%d\n", s.LinearScans)
	fmt.Fprintf(tw, "Render time avg / max:\t%.3f ms / %.3f ms\n", s.AvgRenderMs, s.MaxRenderMs)
	fmt.Fprintf(tw, "Live elements:\t%d\n", s.Elements)
	for _, kind := range models.Kinds {
		fmt.Fprintf(tw, "Idle %s handles:\t%d\n", kind, s.PoolIdle[kind.String()])
	}
	return tw.Flush()
}

// metricsConnLimit caps concurrent scrapers of the stats endpoint.
const metricsConnLimit = 8

// serveMetrics exposes rec on addr until ctx ends.
func serveMetrics(ctx context.Context, addr string, rec *metrics.Recorder, log *logging.Logger) (done <-chan struct{}, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		if err := srv.Serve(netutil.LimitListener(ln, metricsConnLimit)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics on /metrics")
	return ch, nil
}

// newStatsCmd creates the 'stats' command.
func newStatsCmd() *cobra.Command {
	var (
		flags       browseFlags
		recursive   bool
		maxItems    int
		maxSteps    int
		scale       float64
		asJSON      bool
		perPass     bool
		metricsAddr string
		paths       string
	)

	cmd := &cobra.Command{
		Use:   "stats [dir]",
		Short: "Measure rendering of a directory without a screen",
		Long: `Lay out a directory, sweep the viewport across the whole grid and report
render statistics. Frames are stepped by hand so the numbers only reflect
engine work.

With --metrics-addr the Prometheus metrics of the sweep are served on
/metrics until Ctrl+C.

Examples:
  rescale-space stats ~/data
  rescale-space stats / --recursive --max-items 50000 --scale 0.5
  rescale-space stats ~/runs -r --path "run_*/**" --include "*.dat"
  rescale-space stats . --json
  rescale-space stats . --per-pass | jq .renderTimeMs
  rescale-space stats . --metrics-addr :9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			log := GetLogger()

			dir, err := dirArg(args)
			if err != nil {
				return err
			}
			sortBy, err := flags.sort()
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			match := flags.filter()
			match.PathInclude = filter.ParsePatternList(paths)
			items, err := collectItems(ctx, dir, recursive, maxItems, flags.list(), match, sortBy, cfg)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", dir, err)
			}
			log.Info().Str("dir", dir).Int("items", len(items)).Msg("Collected items")

			out := cmd.OutOrStdout()
			opts := sweepOptions{Scale: scale, MaxSteps: maxSteps, Logger: log}
			if !asJSON && !perPass {
				opts.Progress = progress.New(os.Stderr)
			}
			if perPass {
				enc := json.NewEncoder(out)
				opts.OnPass = func(st engine.Stats) {
					if err := enc.Encode(st); err != nil {
						log.Warn().Err(err).Msg("Failed to write pass stats")
					}
				}
			}

			var rec *metrics.Recorder
			var served <-chan struct{}
			if metricsAddr != "" {
				rec = metrics.NewRecorder()
				opts.Observer = rec
				if served, err = serveMetrics(ctx, metricsAddr, rec, log); err != nil {
					return err
				}
			}

			sum, err := runSweep(ctx, cfg, items, opts)
			if err != nil {
				return err
			}

			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(sum); err != nil {
					return err
				}
			case !perPass:
				if err := printSummary(out, dir, sum); err != nil {
					return err
				}
			}

			if served != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Serving metrics on %s/metrics, press Ctrl+C to stop\n", metricsAddr)
				<-served
			}
			return nil
		},
	}
	flags.register(cmd)
	_ = cmd.Flags().MarkHidden("no-watch")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Walk the whole tree instead of one directory")
	cmd.Flags().IntVar(&maxItems, "max-items", 100000, "Stop collecting after this many items (0 = no limit)")
	cmd.Flags().IntVar(&maxSteps, "steps", 0, "Limit the sweep to this many viewport positions (0 = cover everything)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Zoom level of the sweep")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().BoolVar(&perPass, "per-pass", false, "Print every pass as a JSON line")
	cmd.Flags().StringVar(&paths, "path", "", "Only count entries whose relative path matches these comma-separated globs (** allowed)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}
