package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/alphabet"
	"github.com/dasher-project/DasherCore-sub000/ctw"
	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/dasher-project/DasherCore-sub000/modelstore"
	"github.com/dasher-project/DasherCore-sub000/nodetree"
	"github.com/dasher-project/DasherCore-sub000/trainer"
	"github.com/dasher-project/DasherCore-sub000/unigram"
)

const (
	predictNorm   = 1 << 20
	azuritePrefix = "azurite:"
)

// engine hides the model's context type from the commands.
type engine interface {
	Model() modelstore.Model
	// ArenaNodes is the CTW arena size, zero without a CTW.
	ArenaNodes() uint64
	Alphabet() *alphabet.Alphabet
	Train(ctx context.Context, path string, progress trainer.ProgressFunc) (trainer.Result, error)
	Predict(text string, k int) []lm.Prediction
	Simulate(frames int, learn bool) (simulation, error)
	Navigator(learn bool) (navigator, error)
}

type simulation struct {
	Frames   int
	MaxLive  int
	Live     int
	Rerooted int
	Text     string
}

type choice struct {
	Text  string
	Share float64
}

// navigator steps through the tree one symbol at a time.
type navigator interface {
	Choices() []choice
	Choose(i int) error
	Back() error
	Text() string
	Close()
}

type typedEngine[C any] struct {
	log     logger.Logger
	cfg     config
	alph    *alphabet.Alphabet
	model   lm.Model[C]
	persist modelstore.Model
	arena   uint64
	mu      sync.Mutex
}

func newTypedEngine[C any](log logger.Logger, cfg config, alph *alphabet.Alphabet, model lm.Model[C], persist modelstore.Model, arena uint64) *typedEngine[C] {
	return &typedEngine[C]{log: log, cfg: cfg, alph: alph, model: model, persist: persist, arena: arena}
}

// newCTW builds a CTW with exactly cfg.MaxNodes arena nodes.
func newCTW(log logger.Logger, cfg config, alph *alphabet.Alphabet) (*ctw.Model, error) {
	return ctw.New(log, alph.NumSymbols(),
		ctw.WithMaxNrNodes(cfg.MaxNodes),
		ctw.WithAlphabetName(alph.Name()))
}

func newEngine(log logger.Logger, cfg config, alph *alphabet.Alphabet) (engine, error) {
	switch cfg.Model {
	case modelCTW:
		m, err := newCTW(log, cfg, alph)
		if err != nil {
			return nil, err
		}
		return newTypedEngine[*ctw.Context](log, cfg, alph, m, m, m.Options().MaxNrNodes), nil
	case modelUnigram:
		m, err := unigram.New(log, alph.NumSymbols(), alph.Name())
		if err != nil {
			return nil, err
		}
		return newTypedEngine[*unigram.Context](log, cfg, alph, m, m, 0), nil
	case modelMixture:
		a, err := newCTW(log, cfg, alph)
		if err != nil {
			return nil, err
		}
		b, err := unigram.New(log, alph.NumSymbols(), alph.Name())
		if err != nil {
			return nil, err
		}
		m, err := lm.NewMixture[*ctw.Context, *unigram.Context](a, b, cfg.Weight)
		if err != nil {
			return nil, err
		}
		return newTypedEngine[*lm.MixContext[*ctw.Context, *unigram.Context]](log, cfg, alph, m, m, a.Options().MaxNrNodes), nil
	default:
		return nil, fmt.Errorf("unknown model %q", cfg.Model)
	}
}

// openStore returns a directory store, or a blob store on the local emulator
// for an azurite:<container> location.
func openStore(log logger.Logger, location string) (*modelstore.Store, error) {
	if container, ok := strings.CutPrefix(location, azuritePrefix); ok {
		storer, err := azblob.NewDev(azblob.NewDevConfigFromEnv(), container)
		if err != nil {
			return nil, fmt.Errorf("blob emulator: %w", err)
		}
		return modelstore.New(log, modelstore.NewBlobStore(log, storer, map[string]string{"app": "zoomlm"}))
	}
	checkFreeDisk(log, location)
	return modelstore.New(log, modelstore.NewDirStore(location))
}

func (e *typedEngine[C]) Model() modelstore.Model      { return e.persist }
func (e *typedEngine[C]) ArenaNodes() uint64           { return e.arena }
func (e *typedEngine[C]) Alphabet() *alphabet.Alphabet { return e.alph }

func (e *typedEngine[C]) Train(ctx context.Context, path string, progress trainer.ProgressFunc) (trainer.Result, error) {
	opts := []trainer.Option{trainer.WithMutex(&e.mu)}
	if progress != nil {
		opts = append(opts, trainer.WithProgress(progress))
	}
	t, err := trainer.New[C](e.log, e.model, e.alph, opts...)
	if err != nil {
		return trainer.Result{}, err
	}
	return t.TrainFile(ctx, path)
}

// prefix is the alphabet's default context followed by text, unknown
// characters dropped.
func (e *typedEngine[C]) prefix(text string) []lm.Symbol {
	var out []lm.Symbol
	for _, s := range e.alph.Symbols(e.alph.DefaultContext() + text) {
		if s > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Predict returns the k most probable symbols after text.
func (e *typedEngine[C]) Predict(text string, k int) []lm.Prediction {
	ctx := e.model.CreateEmptyContext()
	defer e.model.ReleaseContext(ctx)
	for _, s := range e.prefix(text) {
		e.model.EnterSymbol(ctx, s)
	}
	ranked := lm.Ranked(e.model.GetProbs(ctx, nil, predictNorm, e.cfg.Uniform))
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func (e *typedEngine[C]) newTree(learn bool) (*nodetree.Tree[C], error) {
	opts := []nodetree.Option{
		nodetree.WithUniform(e.cfg.Uniform),
		nodetree.WithScreen(e.cfg.ScreenY),
		nodetree.WithPolicy(nodetree.NewAmortizedPolicy(e.cfg.Budget, nodetree.DefaultMaxExpansions, nodetree.DefaultMinSize)),
		nodetree.WithMutex(&e.mu),
	}
	if learn {
		opts = append(opts, nodetree.WithTrainOnCommit())
	}
	return nodetree.New[C](e.log, e.model, e.prefix(""), opts...)
}

// Simulate navigates forward for frames frames, always steering to the middle
// of the node under the crosshair.
func (e *typedEngine[C]) Simulate(frames int, learn bool) (simulation, error) {
	tree, err := e.newTree(learn)
	if err != nil {
		return simulation{}, err
	}
	defer tree.Close()

	sim := simulation{Frames: frames}
	for i := 0; i < frames; i++ {
		y1, y2, err := tree.Extent(tree.Crosshair())
		if err != nil {
			return sim, err
		}
		stats, err := tree.Frame((y1 + y2) / 2)
		if err != nil {
			return sim, err
		}
		sim.MaxLive = max(sim.MaxLive, stats.Live)
		sim.Rerooted += stats.Rerooted
	}
	sim.Live = tree.NodeCount()
	sim.Text = e.alph.String(tree.Text())
	return sim, nil
}

type treeNavigator[C any] struct {
	tree    *nodetree.Tree[C]
	alph    *alphabet.Alphabet
	choices []*nodetree.Node[C]
}

func (e *typedEngine[C]) Navigator(learn bool) (navigator, error) {
	tree, err := e.newTree(learn)
	if err != nil {
		return nil, err
	}
	return &treeNavigator[C]{tree: tree, alph: e.alph}, nil
}

// Choices lists the root's children, most probable first.
func (n *treeNavigator[C]) Choices() []choice {
	root := n.tree.Root()
	n.tree.Populate(root)
	n.choices = append(n.choices[:0], root.Children()...)
	sort.SliceStable(n.choices, func(i, j int) bool {
		return n.choices[i].Range() > n.choices[j].Range()
	})
	out := make([]choice, len(n.choices))
	for i, c := range n.choices {
		out[i] = choice{
			Text:  n.alph.Text(c.Symbol()),
			Share: float64(c.Range()) / float64(root.Range()),
		}
	}
	return out
}

func (n *treeNavigator[C]) Choose(i int) error {
	if i < 0 || i >= len(n.choices) {
		return fmt.Errorf("no choice %d", i)
	}
	_, err := n.tree.ZoomTo(n.choices[i])
	return err
}

func (n *treeNavigator[C]) Back() error {
	_, _, err := n.tree.ZoomOut()
	return err
}

func (n *treeNavigator[C]) Text() string { return n.alph.String(n.tree.RootText()) }

func (n *treeNavigator[C]) Close() { n.tree.Close() }
