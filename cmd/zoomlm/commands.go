package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dasher-project/DasherCore-sub000/alphabet"
	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/dasher-project/DasherCore-sub000/modelstore"
	"github.com/spf13/cobra"
)

// open builds the configured model, loading the latest snapshot unless
// --fresh is set or there is none yet. A CTW arena is sized like the
// snapshot's so the snapshot can be read back.
func (a *app) open(ctx context.Context) (engine, *modelstore.Store, error) {
	alph := alphabet.English()
	store, err := openStore(a.log, a.cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	snap, err := a.latest(ctx, store, alph.Name())
	if err != nil {
		return nil, nil, err
	}

	cfg := a.cfg
	cfg.MaxNodes = arenaSize(a.log, cfg.MaxNodes, snap)
	e, err := newEngine(a.log, cfg, alph)
	if err != nil {
		return nil, nil, err
	}
	if snap == nil {
		return e, store, nil
	}

	m, err := store.Load(ctx, alph.Name(), snap.ID, e.Model())
	switch {
	case errors.Is(err, lm.ErrWrongModel):
		return nil, nil, fmt.Errorf("%w: pick the snapshot's --model or use --fresh", err)
	case err != nil:
		return nil, nil, err
	}
	a.log.Infof("using snapshot %s, %d symbols learnt", m.ID, m.Symbols)
	return e, store, nil
}

// latest returns the newest snapshot's manifest, or nil with --fresh or when
// the store has none.
func (a *app) latest(ctx context.Context, store *modelstore.Store, alph string) (*modelstore.Manifest, error) {
	if a.cfg.Fresh {
		return nil, nil
	}
	id, err := store.Latest(ctx, alph)
	if errors.Is(err, modelstore.ErrNotFound) {
		a.log.Infof("no snapshot for %q yet, starting fresh", alph)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m, err := store.Manifest(ctx, alph, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// snapshotManifest describes a snapshot of e's model.
func snapshotManifest(e engine, sources ...string) modelstore.Manifest {
	return modelstore.Manifest{
		Alphabet:   e.Alphabet().Name(),
		ArenaNodes: e.ArenaNodes(),
		Sources:    sources,
	}
}

func newTrainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train FILE...",
		Short: "Train the model on text files and save a snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			manifest := snapshotManifest(e)
			for _, f := range files {
				res, err := e.Train(ctx, f, func(read, total int64) {
					if total > 0 {
						a.log.Infof("%s: %d%%", f, read*100/total)
					}
				})
				manifest.Symbols += res.Learnt
				if err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
				manifest.Sources = append(manifest.Sources, f)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d symbols learnt, %d context switches\n", f, res.Learnt, res.Switches)
			}
			saved, err := store.Save(ctx, e.Model(), manifest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", saved.ID)
			return nil
		},
	}
}

func newPredictCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "predict TEXT",
		Short: "Print the most probable next characters after TEXT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range e.Predict(args[0], top) {
				fmt.Fprintf(cmd.OutOrStdout(), "%q\t%.4f\n", e.Alphabet().Text(p.Symbol), float64(p.Prob)/predictNorm)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 5, "number of predictions")
	return cmd
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		frames int
		learn  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Navigate forward through the most probable text and report the tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, _, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			sim, err := e.Simulate(frames, learn)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "frames %d, reroots %d, live %d, most live %d (budget %d)\n",
				sim.Frames, sim.Rerooted, sim.Live, sim.MaxLive, a.cfg.Budget)
			fmt.Fprintf(out, "text %q\n", sim.Text)
			return nil
		},
	}
	cmd.Flags().IntVar(&frames, "frames", 10000, "frames to run")
	cmd.Flags().BoolVar(&learn, "learn", false, "learn committed symbols")
	return cmd
}
