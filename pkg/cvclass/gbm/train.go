// Package gbm is a multiclass gradient boosted tree classifier with
// histogram split finding, row subsampling and per-tree column subsampling.
package gbm

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/cvclass/internal/par"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Option configures training.
type Option func(*trainer)

// WithLogger sets the progress logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

type trainer struct {
	p      Params
	rows   [][]float64
	cols   []column
	logger *zap.Logger

	gainSum   []float64
	gainCount []int
}

// pending is a node waiting to be split or turned into a leaf.
type pending struct {
	node  int
	g, h  float64
	count int
}

type split struct {
	gain      float64
	feature   int
	threshold float64
	gl, hl    float64
	countL    int
}

// Train fits a softmax booster. labels are category codes and classes the
// full ordered list of codes the model predicts; every label must be in
// classes. The same inputs and Params.Seed always produce the same model.
func Train(ctx context.Context, rows [][]float64, labels []int, classes []int, p Params, opts ...Option) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows) != len(labels) {
		return nil, fmt.Errorf("gbm: %d rows, %d labels: %w", len(rows), len(labels), internalerr.ErrInvalidInput)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("gbm: no classes: %w", internalerr.ErrInvalidInput)
	}
	classIdx := make(map[int]int, len(classes))
	for i, c := range classes {
		if _, dup := classIdx[c]; dup {
			return nil, fmt.Errorf("gbm: duplicate class %d: %w", c, internalerr.ErrInvalidInput)
		}
		classIdx[c] = i
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("gbm: zero-width rows: %w", internalerr.ErrInvalidInput)
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		k, ok := classIdx[l]
		if !ok {
			return nil, fmt.Errorf("gbm: row %d label %d not in classes: %w", i, l, internalerr.ErrInvalidInput)
		}
		y[i] = k
		if len(rows[i]) != width {
			return nil, fmt.Errorf("gbm: row %d width %d, want %d: %w", i, len(rows[i]), width, internalerr.ErrShapeMismatch)
		}
	}

	t := &trainer{
		p:         p,
		rows:      rows,
		logger:    zap.NewNop(),
		gainSum:   make([]float64, width),
		gainCount: make([]int, width),
	}
	for _, opt := range opts {
		opt(t)
	}

	start := time.Now()
	t.cols = buildColumns(rows, width, p.MaxBins)

	n, numClass := len(rows), len(classes)
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	margins := make([][]float64, n)
	probs := make([][]float64, n)
	for i := range margins {
		margins[i] = make([]float64, numClass)
		probs[i] = make([]float64, numClass)
	}
	g := make([]float64, n)
	h := make([]float64, n)
	sampled := make([]bool, n)

	model := &Model{
		NumFeature: width,
		Classes:    append([]int(nil), classes...),
		Params:     p,
	}

	for round := 0; round < p.NEstimators; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range margins {
			copy(probs[i], margins[i])
			softmax(probs[i])
		}
		for i := range sampled {
			sampled[i] = p.Subsample >= 1 || rng.Float64() < p.Subsample
		}

		for k := 0; k < numClass; k++ {
			for i := range g {
				pk := probs[i][k]
				target := 0.0
				if y[i] == k {
					target = 1
				}
				g[i] = pk - target
				h[i] = math.Max(2*pk*(1-pk), 1e-16)
			}

			tree, err := t.buildTree(ctx, k, g, h, sampled, t.sampleFeatures(rng, width))
			if err != nil {
				return nil, err
			}
			for i, row := range rows {
				margins[i][k] += tree.predict(row)
			}
			model.Trees = append(model.Trees, tree)
		}

		if (round+1)%50 == 0 || round+1 == p.NEstimators {
			t.logger.Debug("boosting progress",
				zap.Int("round", round+1),
				zap.Int("of", p.NEstimators),
				zap.Float64("train_logloss", logLoss(margins, y)))
		}
	}

	model.Importance = t.importances()
	t.logger.Info("trained booster",
		zap.Int("rows", n),
		zap.Int("features", width),
		zap.Int("classes", numClass),
		zap.Int("trees", len(model.Trees)),
		zap.Duration("elapsed", time.Since(start)))
	return model, nil
}

func (t *trainer) sampleFeatures(rng *rand.Rand, width int) []int {
	if t.p.ColsampleByTree >= 1 {
		all := make([]int, width)
		for i := range all {
			all[i] = i
		}
		return all
	}
	k := max(1, int(t.p.ColsampleByTree*float64(width)))
	feats := rng.Perm(width)[:k]
	sort.Ints(feats)
	return feats
}

// buildTree grows one tree level by level.
func (t *trainer) buildTree(ctx context.Context, class int, g, h []float64, sampled []bool, feats []int) (Tree, error) {
	tree := Tree{Class: class, Nodes: []Node{{}}}

	root := pending{node: 0}
	rowNode := make([]int32, len(g))
	for i := range rowNode {
		if !sampled[i] {
			rowNode[i] = -1
			continue
		}
		root.g += g[i]
		root.h += h[i]
		root.count++
	}
	active := []pending{root}

	for depth := 0; depth < t.p.MaxDepth && len(active) > 0; depth++ {
		best, err := t.findSplits(ctx, active, rowNode, g, h, feats)
		if err != nil {
			return Tree{}, err
		}

		var next []pending
		child := make([]int32, len(active))
		for a, nd := range active {
			s := best[a]
			if s.feature < 0 {
				tree.Nodes[nd.node] = t.leaf(nd)
				child[a] = -1
				continue
			}
			left := len(tree.Nodes)
			tree.Nodes = append(tree.Nodes, Node{}, Node{})
			tree.Nodes[nd.node] = Node{Feature: s.feature, Threshold: s.threshold, Left: left, Right: left + 1}
			t.gainSum[s.feature] += s.gain
			t.gainCount[s.feature]++

			child[a] = int32(len(next))
			next = append(next,
				pending{node: left, g: s.gl, h: s.hl, count: s.countL},
				pending{node: left + 1, g: nd.g - s.gl, h: nd.h - s.hl, count: nd.count - s.countL})
		}

		for i, a := range rowNode {
			if a < 0 {
				continue
			}
			c := child[a]
			if c < 0 {
				rowNode[i] = -1
				continue
			}
			n := tree.Nodes[active[a].node]
			if t.rows[i][n.Feature] <= n.Threshold {
				rowNode[i] = c
			} else {
				rowNode[i] = c + 1
			}
		}
		active = next
	}

	for _, nd := range active {
		tree.Nodes[nd.node] = t.leaf(nd)
	}
	return tree, nil
}

func (t *trainer) leaf(nd pending) Node {
	return Node{Leaf: true, Value: leafWeight(nd.g, nd.h, t.p.Lambda) * t.p.LearningRate}
}

// leafWeight is the optimal leaf value -G/(H+lambda). A node without
// hessian mass, such as the root of a tree that sampled no rows under
// reg_lambda=0, gets 0.
func leafWeight(g, h, lambda float64) float64 {
	if d := h + lambda; d > 0 {
		return -g / d
	}
	return 0
}

// structureScore is G²/(H+lambda), 0 for an empty node.
func structureScore(g, h, lambda float64) float64 {
	if d := h + lambda; d > 0 {
		return g * g / d
	}
	return 0
}

// findSplits returns the best split per active node; feature is -1 when a
// node should become a leaf. Features are searched in parallel and merged
// in ascending feature order, so equal gains resolve to the lower feature.
func (t *trainer) findSplits(ctx context.Context, active []pending, rowNode []int32, g, h []float64, feats []int) ([]split, error) {
	workers := t.p.Workers
	if workers <= 0 {
		workers = 4
	}
	chunks := par.Chunk(feats, max(1, (len(feats)+workers*4-1)/(workers*4)))

	results, err := par.Map(ctx, chunks, workers, func(ctx context.Context, _ int, fs []int) ([]split, error) {
		best := noSplits(len(active))
		for _, f := range fs {
			t.scanFeature(f, active, rowNode, g, h, best)
		}
		return best, nil
	})
	if err != nil {
		return nil, err
	}

	best := noSplits(len(active))
	for _, chunk := range results {
		for a, s := range chunk {
			if s.feature >= 0 && s.gain > best[a].gain {
				best[a] = s
			}
		}
	}
	return best, nil
}

func noSplits(n int) []split {
	out := make([]split, n)
	for i := range out {
		out[i].feature = -1
	}
	return out
}

// scanFeature builds the (node, bin) gradient histogram of one feature and
// updates best with any improving split.
func (t *trainer) scanFeature(f int, active []pending, rowNode []int32, g, h []float64, best []split) {
	col := &t.cols[f]
	nb := len(col.cuts)
	if nb < 2 {
		return
	}

	na := len(active)
	hg := make([]float64, na*nb)
	hh := make([]float64, na*nb)
	hc := make([]int, na*nb)
	nzg := make([]float64, na)
	nzh := make([]float64, na)
	nzc := make([]int, na)

	for e, r := range col.rows {
		a := rowNode[r]
		if a < 0 {
			continue
		}
		idx := int(a)*nb + int(col.bins[e])
		hg[idx] += g[r]
		hh[idx] += h[r]
		hc[idx]++
		nzg[a] += g[r]
		nzh[a] += h[r]
		nzc[a]++
	}

	lambda, mcw := t.p.Lambda, t.p.MinChildWeight
	for a, nd := range active {
		base := a * nb
		z := base + col.zeroBin
		hg[z] += nd.g - nzg[a]
		hh[z] += nd.h - nzh[a]
		hc[z] += nd.count - nzc[a]

		parent := structureScore(nd.g, nd.h, lambda)
		var gl, hl float64
		var cl int
		for b := 0; b < nb-1; b++ {
			gl += hg[base+b]
			hl += hh[base+b]
			cl += hc[base+b]
			cr := nd.count - cl
			if cl == 0 || cr == 0 {
				continue
			}
			gr, hr := nd.g-gl, nd.h-hl
			if hl < mcw || hr < mcw {
				continue
			}
			gain := 0.5*(structureScore(gl, hl, lambda)+structureScore(gr, hr, lambda)-parent) - t.p.Gamma
			if gain > 0 && gain > best[a].gain {
				best[a] = split{gain: gain, feature: f, threshold: col.cuts[b], gl: gl, hl: hl, countL: cl}
			}
		}
	}
}

func (t *trainer) importances() []float64 {
	out := make([]float64, len(t.gainSum))
	var total float64
	for f, s := range t.gainSum {
		if t.gainCount[f] > 0 {
			out[f] = s / float64(t.gainCount[f])
			total += out[f]
		}
	}
	if total > 0 {
		for f := range out {
			out[f] /= total
		}
	}
	return out
}

func logLoss(margins [][]float64, y []int) float64 {
	p := make([]float64, 0, 8)
	var sum float64
	for i, m := range margins {
		p = append(p[:0], m...)
		softmax(p)
		sum -= math.Log(math.Max(p[y[i]], 1e-15))
	}
	return sum / float64(len(margins))
}
