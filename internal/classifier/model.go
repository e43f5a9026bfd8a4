// Package classifier loads the pre-trained diagnosis model and adapts its raw output
// into domain.DiagnosisDecision values.
//
// Models are shipped as versioned JSON artifacts. The artifact carries the ordered
// feature list the model was trained on and the class order fixed at export time, so
// probability vectors can be read by class name instead of by position.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// KindRandomForest is the only model kind currently understood by LoadArtifact.
const KindRandomForest = "random_forest"

// Model is the minimal surface of a trained classifier.
type Model interface {
	Predict(x []float64) (string, error)
	PredictProba(x []float64) ([]float64, error)
}

// Node is one node of an exported decision tree. Leaves have Feature < 0 and carry
// per-class sample counts in Value, in artifact class order. Internal nodes send
// x[Feature] <= Threshold to Left and everything else to Right.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Value     []float64 `json:"value,omitempty"`
}

// IsLeaf reports whether the node terminates a path.
func (n Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is a flattened binary decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Artifact is the on-disk form of a trained model.
type Artifact struct {
	Version    string   `json:"version"`
	Kind       string   `json:"kind"`
	Features   []string `json:"features"`
	Classes    []string `json:"classes"`
	Trees      []Tree   `json:"trees"`
	TrainedOn  string   `json:"trained_on,omitempty"`
	ExportedAt string   `json:"exported_at,omitempty"`
}

// LoadArtifact reads and validates a model artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model artifact: %w", err)
	}
	defer f.Close()

	a, err := ParseArtifact(f)
	if err != nil {
		return nil, fmt.Errorf("loading model artifact %s: %w", path, err)
	}
	return a, nil
}

// ParseArtifact decodes and validates an artifact.
func ParseArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the artifact is structurally usable. Child indices must point
// forward so every path terminates.
func (a *Artifact) Validate() error {
	if a.Version == "" {
		return errors.New("artifact version is required")
	}
	if a.Kind != KindRandomForest {
		return fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if err := uniqueNonEmpty("feature", a.Features); err != nil {
		return err
	}
	if len(a.Classes) < 2 {
		return fmt.Errorf("artifact needs at least two classes, got %d", len(a.Classes))
	}
	if err := uniqueNonEmpty("class", a.Classes); err != nil {
		return err
	}
	if len(a.Trees) == 0 {
		return errors.New("artifact has no trees")
	}

	for ti, tree := range a.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range tree.Nodes {
			if n.IsLeaf() {
				if len(n.Value) != len(a.Classes) {
					return fmt.Errorf("tree %d node %d: leaf has %d values for %d classes", ti, ni, len(n.Value), len(a.Classes))
				}
				var total float64
				for _, v := range n.Value {
					if v < 0 {
						return fmt.Errorf("tree %d node %d: negative leaf value", ti, ni)
					}
					total += v
				}
				if total == 0 {
					return fmt.Errorf("tree %d node %d: empty leaf", ti, ni)
				}
				continue
			}
			if n.Feature >= len(a.Features) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Left >= len(tree.Nodes) || n.Right <= ni || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: invalid children %d/%d", ti, ni, n.Left, n.Right)
			}
		}
	}
	return nil
}

// Model returns the executable form of the artifact.
func (a *Artifact) Model() *Forest {
	return &Forest{classes: a.Classes, nFeatures: len(a.Features), trees: a.Trees}
}

func uniqueNonEmpty(kind string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("artifact has no %ss", kind)
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("artifact has an empty %s name", kind)
		}
		if seen[v] {
			return fmt.Errorf("artifact has duplicate %s %q", kind, v)
		}
		seen[v] = true
	}
	return nil
}

// Forest is a random forest evaluated from an Artifact. It is immutable and safe
// for concurrent use.
type Forest struct {
	classes   []string
	nFeatures int
	trees     []Tree
}

// PredictProba returns the mean of each tree's normalised leaf distribution.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != f.nFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", f.nFeatures, len(x))
	}

	proba := make([]float64, len(f.classes))
	for _, tree := range f.trees {
		leaf := tree.leafFor(x)
		var total float64
		for _, v := range leaf.Value {
			total += v
		}
		for i, v := range leaf.Value {
			proba[i] += v / total
		}
	}
	for i := range proba {
		proba[i] /= float64(len(f.trees))
	}
	return proba, nil
}

// Predict returns the class with the highest probability; ties go to the earlier class.
func (f *Forest) Predict(x []float64) (string, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return "", err
	}
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return f.classes[best], nil
}

func (t Tree) leafFor(x []float64) Node {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n
}
