package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/swarm/internal/inbox"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Consume outcome files and sweep the board until interrupted",
	Long: `Watch the inbox directory for outcome files and apply them as they
arrive, while sweeping faded signals in the background.

Each file holds one outcome or a list of outcomes, in YAML or JSON:

  - specialist_id: sp-1a2b3c4d
    success: true
    quality: 0.9
  - task_id: t-42
    approach: approach_B
    depositor_id: worker-1
    success: true
    quality: 0.8

Write files under a dotfile name and rename them into place. Applied files
are moved to processed/, rejected ones to failed/.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Inbox directory (default: inbox.dir or the data directory)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord, err := openCoordinator(ctx)
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	dir := watchDir
	if dir == "" {
		dir = inboxDir(cfg.Inbox)
	}
	w, err := inbox.New(dir, coord.Apply, inbox.WithLogger(logger))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printStatus(out, "●", fmt.Sprintf("Watching %s (sweep every %s)", w.Dir(), cfg.Board.SweepInterval), color.FgCyan)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return coord.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printStatus(out, "✓", fmt.Sprintf("Stopped: %d files applied, %d rejected", w.Processed(), w.Failed()), color.FgGreen)
	return nil
}
