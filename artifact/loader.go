package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liamcoop/credit/scoring"
)

// DirLoader loads a bundle from the three documents in Dir
type DirLoader struct {
	Dir string
}

var _ scoring.ArtifactLoader = DirLoader{}

// Load reads columns, model and explainer in that order. Every failure is an
// *scoring.ArtifactLoadError naming the artifact and file.
func (l DirLoader) Load() (*scoring.Artifacts, error) {
	columns, err := l.loadColumns()
	if err != nil {
		return nil, err
	}

	predictor, err := l.loadModel(len(columns))
	if err != nil {
		return nil, err
	}

	attributor, err := l.loadExplainer(len(columns), predictor)
	if err != nil {
		return nil, err
	}

	return &scoring.Artifacts{Predictor: predictor, Attributor: attributor, Columns: columns}, nil
}

func (l DirLoader) loadColumns() (scoring.ColumnOrder, error) {
	path := filepath.Join(l.Dir, ColumnsFile)
	fail := func(err error) error {
		return &scoring.ArtifactLoadError{Artifact: "columns", Path: path, Err: err}
	}

	var doc ColumnsDoc
	if err := readJSON(path, &doc); err != nil {
		return nil, fail(err)
	}
	if err := checkVersion(doc.FormatVersion); err != nil {
		return nil, fail(err)
	}
	if err := ValidateColumns(doc.Columns); err != nil {
		return nil, fail(err)
	}
	return doc.Columns, nil
}

func (l DirLoader) loadModel(width int) (scoring.Predictor, error) {
	path := filepath.Join(l.Dir, ModelFile)
	fail := func(err error) error {
		return &scoring.ArtifactLoadError{Artifact: "model", Path: path, Err: err}
	}

	var doc ModelDoc
	if err := readJSON(path, &doc); err != nil {
		return nil, fail(err)
	}
	if err := checkVersion(doc.FormatVersion); err != nil {
		return nil, fail(err)
	}
	if doc.NFeatures != width {
		return nil, fail(fmt.Errorf("model expects %d features, column order has %d", doc.NFeatures, width))
	}

	switch doc.Kind {
	case KindLinear:
		if doc.Linear == nil {
			return nil, fail(errors.New("linear model section missing"))
		}
		if len(doc.Linear.Weights) != width {
			return nil, fail(fmt.Errorf("linear model has %d weights, want %d", len(doc.Linear.Weights), width))
		}
		return doc.Linear, nil
	case KindForest:
		if doc.Forest == nil || doc.Forest.Forest == nil || len(doc.Forest.Forest.Trees) == 0 {
			return nil, fail(errors.New("forest model section missing or empty"))
		}
		if doc.Forest.BandWidth <= 0 {
			return nil, fail(fmt.Errorf("forest band width must be positive, got %v", doc.Forest.BandWidth))
		}
		return doc.Forest, nil
	default:
		return nil, fail(fmt.Errorf("%w: model %q", ErrUnknownKind, doc.Kind))
	}
}

func (l DirLoader) loadExplainer(width int, model scoring.Predictor) (scoring.Attributor, error) {
	path := filepath.Join(l.Dir, ExplainerFile)
	fail := func(err error) error {
		return &scoring.ArtifactLoadError{Artifact: "explainer", Path: path, Err: err}
	}

	var doc ExplainerDoc
	if err := readJSON(path, &doc); err != nil {
		return nil, fail(err)
	}
	if err := checkVersion(doc.FormatVersion); err != nil {
		return nil, fail(err)
	}
	if doc.NFeatures != width || len(doc.Baseline) != width {
		return nil, fail(fmt.Errorf("explainer width %d with %d baseline values, column order has %d",
			doc.NFeatures, len(doc.Baseline), width))
	}

	switch doc.Kind {
	case ExplainerLinear:
		if len(doc.Weights) != width {
			return nil, fail(fmt.Errorf("linear explainer has %d weights, want %d", len(doc.Weights), width))
		}
		return &LinearExplainer{Weights: doc.Weights, Baseline: doc.Baseline}, nil
	case ExplainerOcclusion:
		return &OcclusionExplainer{Model: model, Baseline: doc.Baseline}, nil
	default:
		return nil, fail(fmt.Errorf("%w: explainer %q", ErrUnknownKind, doc.Kind))
	}
}

func checkVersion(v int) error {
	if v != FormatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, v, FormatVersion)
	}
	return nil
}

func readJSON(path string, into any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Save writes b into dir, creating it if needed. Each document is written to a
// temporary file and renamed so a concurrent Load never sees a partial file.
func Save(dir string, b Bundle) error {
	if err := ValidateColumns(b.Columns); err != nil {
		return fmt.Errorf("invalid columns: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	model := b.Model
	model.FormatVersion = FormatVersion
	if model.Forest != nil && model.Forest.Forest != nil {
		model.Forest = model.Forest.portable()
	}

	explainer := b.Explainer
	explainer.FormatVersion = FormatVersion

	docs := []struct {
		name string
		doc  any
	}{
		{ColumnsFile, ColumnsDoc{FormatVersion: FormatVersion, Columns: b.Columns}},
		{ModelFile, model},
		{ExplainerFile, explainer},
	}
	for _, d := range docs {
		if err := writeJSON(filepath.Join(dir, d.name), d.doc); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}
