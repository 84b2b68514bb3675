package ml

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// ForestParams control the bagged regression-tree ensemble.
type ForestParams struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

func DefaultForestParams() ForestParams {
	return ForestParams{Trees: 60, MaxDepth: 8, MinLeaf: 2, Seed: 42}
}

// Node of a regression tree stored in a flat slice. Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if n.Feature < len(row) && row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Check reports whether every tree is a well-formed flat tree over cols features.
// Children must come after their parent, which also rules out cycles.
func (f *Forest) Check(cols int) error {
	if len(f.Trees) == 0 {
		return errors.New("forest: no trees")
	}
	for t, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("forest: tree %d is empty", t)
		}
		for i, n := range tree.Nodes {
			if n.Left < 0 {
				continue
			}
			if n.Feature < 0 || n.Feature >= cols {
				return fmt.Errorf("forest: tree %d node %d splits on feature %d of %d", t, i, n.Feature, cols)
			}
			if n.Left <= i || n.Left >= len(tree.Nodes) || n.Right <= i || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("forest: tree %d node %d has children %d/%d out of range", t, i, n.Left, n.Right)
			}
		}
	}
	return nil
}

// Forest averages bootstrap-trained regression trees.
type Forest struct {
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"importances"`
}

// FitForest trains the ensemble on x, y.
func FitForest(x [][]float64, y []float64, p ForestParams) (*Forest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("fit forest: empty or mismatched training data")
	}
	if p.Trees <= 0 {
		p.Trees = 1
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 1
	}

	rng := rand.New(rand.NewSource(p.Seed))
	nFeatures := len(x[0])
	gain := make([]float64, nFeatures)

	f := &Forest{Trees: make([]Tree, 0, p.Trees)}
	for t := 0; t < p.Trees; t++ {
		sample := make([]int, len(x))
		for i := range sample {
			sample[i] = rng.Intn(len(x))
		}
		b := treeBuilder{x: x, y: y, params: p, gain: gain}
		b.grow(sample, 0)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})
	}

	var total float64
	for _, g := range gain {
		total += g
	}
	f.Importances = make([]float64, nFeatures)
	if total > 0 {
		for j, g := range gain {
			f.Importances[j] = g / total
		}
	}

	return f, nil
}

func (f *Forest) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	if len(f.Trees) == 0 {
		return out
	}
	for i, row := range x {
		var sum float64
		for t := range f.Trees {
			sum += f.Trees[t].predict(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out
}

type treeBuilder struct {
	x      [][]float64
	y      []float64
	params ForestParams
	nodes  []Node
	gain   []float64
}

// grow appends the subtree for idx and returns its root index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Value: meanAt(b.y, idx)})

	if depth >= b.params.MaxDepth || len(idx) < 2*b.params.MinLeaf {
		return self
	}

	feature, threshold, reduction, ok := b.bestSplit(idx)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.gain[feature] += reduction

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self].Feature = feature
	b.nodes[self].Threshold = threshold
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

// bestSplit finds the split with the largest reduction in summed squared error.
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold, reduction float64, ok bool) {
	n := float64(len(idx))
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	parentSSE := sumSq - sum*sum/n

	order := make([]int, len(idx))
	for f := 0; f < len(b.x[idx[0]]); f++ {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })

		var lSum, lSq float64
		for k := 0; k < len(order)-1; k++ {
			v := b.y[order[k]]
			lSum += v
			lSq += v * v

			nl := float64(k + 1)
			nr := n - nl
			if k+1 < b.params.MinLeaf || int(nr) < b.params.MinLeaf {
				continue
			}
			cur, next := b.x[order[k]][f], b.x[order[k+1]][f]
			if cur == next {
				continue
			}

			rSum, rSq := sum-lSum, sumSq-lSq
			sse := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if red := parentSSE - sse; red > reduction+1e-12 {
				feature, threshold, reduction, ok = f, (cur+next)/2, red, true
			}
		}
	}
	return feature, threshold, reduction, ok
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}
