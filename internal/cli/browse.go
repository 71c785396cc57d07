package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale/rescale-space/internal/gui"
	"github.com/rescale/rescale-space/internal/layout"
	"github.com/rescale/rescale-space/internal/localfs"
	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/state"
	"github.com/rescale/rescale-space/internal/tui"
	"github.com/rescale/rescale-space/internal/util/filter"
)

// browseFlags are shared by the terminal and desktop frontends.
type browseFlags struct {
	hidden  bool
	sniff   bool
	sortBy  string
	noWatch bool
	include string
	exclude string
	search  string
	fresh   bool
}

func (f *browseFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.hidden, "all", "a", false, "Include hidden entries")
	cmd.Flags().BoolVar(&f.sniff, "sniff", false, "Detect file types from content, not just the extension")
	cmd.Flags().StringVar(&f.sortBy, "sort", string(layout.SortName), "Sort order: name, size, date or type")
	cmd.Flags().BoolVar(&f.noWatch, "no-watch", false, "Do not follow changes made on disk")
	cmd.Flags().StringVar(&f.include, "include", "", "Only show files matching these comma-separated globs (e.g. \"*.dat,*.csv\")")
	cmd.Flags().StringVar(&f.exclude, "exclude", "", "Hide entries matching these comma-separated globs")
	cmd.Flags().StringVar(&f.search, "search", "", "Only show entries whose name contains every comma-separated term")
	cmd.Flags().BoolVar(&f.fresh, "fresh", false, "Do not restore or remember the zoom and position of directories")
}

// views opens the store of remembered views, or returns nil with --fresh.
// A store that cannot be opened only costs the feature.
func (f *browseFlags) views(log *logging.Logger) *state.ViewStore {
	if f.fresh {
		return nil
	}
	path, err := state.DefaultViewStorePath()
	if err == nil {
		var vs *state.ViewStore
		if vs, err = state.NewViewStore(path); err == nil {
			return vs
		}
	}
	log.Warn().Err(err).Msg("Views will not be remembered")
	return nil
}

func (f *browseFlags) filter() filter.Config {
	return filter.Config{
		Include: filter.ParsePatternList(f.include),
		Exclude: filter.ParsePatternList(f.exclude),
		Search:  filter.ParsePatternList(f.search),
	}
}

func (f *browseFlags) sort() (layout.SortBy, error) {
	switch s := layout.SortBy(f.sortBy); s {
	case layout.SortName, layout.SortSize, layout.SortDate, layout.SortType:
		return s, nil
	default:
		return "", fmt.Errorf("invalid --sort %q (want name, size, date or type)", f.sortBy)
	}
}

func (f *browseFlags) list() localfs.ListOptions {
	return localfs.ListOptions{IncludeHidden: f.hidden, SniffContent: f.sniff}
}

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	var (
		flags        browseFlags
		cellW, cellH float64
	)

	cmd := &cobra.Command{
		Use:   "browse [dir]",
		Short: "Browse a directory in the terminal",
		Long: `Open a directory as a pannable, zoomable grid in the terminal.

Keys:
  arrows, h j k l    pan
  + / -, wheel       zoom (wheel zooms around the pointer)
  0                  reset the view
  click              select
  double-click       open a directory
  Enter              open the selected directory
  Backspace          go to the parent directory
  right click        show details
  r                  reload
  q, Esc             quit

Logs are discarded unless --log-file is given, since the screen belongs to the
browser.

Examples:
  rescale-space browse
  rescale-space browse ~/data --sort size
  rescale-space browse /var/log --all --log-file /tmp/space.log
  rescale-space browse ~/runs --include "*.dat,*.csv" --exclude "debug*"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			log := logging.NewNop()
			if logFile != "" {
				log = GetLogger()
			}
			diag := newEventLogger(log)
			defer diag.Stop()
			return tui.Run(GetContext(), tui.Options{
				Dir:        dir,
				Config:     cfg,
				List:       flags.list(),
				SortBy:     sortBy,
				Filter:     flags.filter(),
				Views:      flags.views(log),
				Logger:     log,
				Bus:        diag.bus,
				CellWidth:  cellW,
				CellHeight: cellH,
				NoWatch:    flags.noWatch,
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&cellW, "cell-width", tui.DefaultCellWidth, "Content pixels per terminal column at zoom 1")
	cmd.Flags().Float64Var(&cellH, "cell-height", tui.DefaultCellHeight, "Content pixels per terminal row at zoom 1")
	return cmd
}

// newGUICmd creates the 'gui' command.
func newGUICmd() *cobra.Command {
	var flags browseFlags

	cmd := &cobra.Command{
		Use:   "gui [dir]",
		Short: "Browse a directory in a desktop window",
		Long: `Open a directory as a pannable, zoomable grid in a desktop window.

Drag to pan, scroll to zoom around the pointer, double-click a folder to open
it and right-click an item for its menu. The toolbar goes back, reloads and
zooms.

Examples:
  rescale-space gui
  rescale-space gui ~/projects --sort date`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			diag := newEventLogger(GetLogger())
			defer diag.Stop()
			return gui.Run(GetContext(), gui.Options{
				Dir:     dir,
				Config:  cfg,
				List:    flags.list(),
				SortBy:  sortBy,
				Filter:  flags.filter(),
				Views:   flags.views(GetLogger()),
				Logger:  GetLogger(),
				Bus:     diag.bus,
				NoWatch: flags.noWatch,
			})
		},
	}
	flags.register(cmd)
	return cmd
}
