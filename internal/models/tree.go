package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	KindDecisionTree = "decision_tree"
	KindRandomForest = "random_forest"
)

// TreeNode is one node of a fitted tree in flat array form. Leaves have
// LeftChild == -1 and carry the class distribution in Value.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Value      []float64 `json:"value"`
}

func (n TreeNode) isLeaf() bool {
	return n.LeftChild < 0
}

// Tree is a fitted binary tree; node 0 is the root.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) validate(features, classes int) error {
	if len(t.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.isLeaf() {
			if len(n.Value) != classes {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(n.Value), classes)
			}
			continue
		}
		if n.FeatureIdx < 0 || n.FeatureIdx >= features {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.FeatureIdx)
		}
		// children always sit after their parent, which also rules out cycles
		if n.LeftChild <= i || n.LeftChild >= len(t.Nodes) || n.RightChild <= i || n.RightChild >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.LeftChild, n.RightChild)
		}
	}
	return nil
}

// leaf walks x down to its leaf: x[feature] <= threshold goes left.
func (t *Tree) leaf(x []float64) TreeNode {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.isLeaf() {
			return n
		}
		if x[n.FeatureIdx] <= n.Threshold {
			idx = n.LeftChild
		} else {
			idx = n.RightChild
		}
	}
}

func (t *Tree) proba(x []float64) []float64 {
	v := append([]float64(nil), t.leaf(x).Value...)
	normalize(v)
	return v
}

// Forest averages the leaf distributions of its trees. A single-tree forest
// is a decision tree.
type Forest struct {
	base
	Trees []Tree `json:"trees"`

	kind string
}

func decodeForest(data []byte) (*Forest, error) {
	var m Forest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.base.validate(); err != nil {
		return nil, err
	}
	if len(m.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	for i := range m.Trees {
		if err := m.Trees[i].validate(m.Features, len(m.ClassLabels)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	m.kind = KindRandomForest
	return &m, nil
}

func decodeDecisionTree(data []byte) (*Forest, error) {
	var t struct {
		base
		Tree
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if err := t.base.validate(); err != nil {
		return nil, err
	}
	if err := t.Tree.validate(t.Features, len(t.ClassLabels)); err != nil {
		return nil, err
	}
	return &Forest{base: t.base, Trees: []Tree{t.Tree}, kind: KindDecisionTree}, nil
}

func (m *Forest) Kind() string {
	return m.kind
}

func (m *Forest) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := m.checkInput(X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	k := len(m.ClassLabels)
	out := mat.NewDense(r, k, nil)
	for i := 0; i < r; i++ {
		x := mat.Row(nil, i, X)
		sum := make([]float64, k)
		for j := range m.Trees {
			for c, p := range m.Trees[j].proba(x) {
				sum[c] += p
			}
		}
		for c := range sum {
			sum[c] /= float64(len(m.Trees))
		}
		out.SetRow(i, sum)
	}
	return out, nil
}

func (m *Forest) Predict(X mat.Matrix) ([]int, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(p, m.ClassLabels), nil
}
