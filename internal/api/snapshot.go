package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is a frozen copy of every dataset endpoint, read from a YAML or
// JSON file. It has no conversational backend, so assistant calls fail with
// ErrUnsupported and callers fall back to local answers.
type Snapshot struct {
	DatasetInfo *DatasetInfo      `json:"info,omitempty"`
	Stats       Summary           `json:"summary,omitempty"`
	Matrix      CorrelationMatrix `json:"correlation,omitempty"`
	Rates       *SurvivalRates    `json:"survival_rates,omitempty"`
	Records     []Record          `json:"records,omitempty"`
	Model       *RegressionResult `json:"regression,omitempty"`
	Features    FeatureAnalysis   `json:"feature_analysis,omitempty"`
}

var _ Source = (*Snapshot)(nil)

// LoadSnapshot reads a snapshot file. Files ending in .json are parsed as
// JSON, anything else as YAML with mapping order preserved.
func LoadSnapshot(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		b, err = yamlToJSON(b)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
		}
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &s, nil
}

// WriteJSON writes the snapshot as indented JSON.
func (s *Snapshot) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func missing(section string) error {
	return fmt.Errorf("snapshot has no %s section: %w", section, ErrUnsupported)
}

// Info serves the saved dataset info; sections missing from the file
// report ErrUnsupported.
func (s *Snapshot) Info(ctx context.Context) (*DatasetInfo, error) {
	if s.DatasetInfo == nil {
		return nil, missing("info")
	}
	return s.DatasetInfo, nil
}

func (s *Snapshot) Summary(ctx context.Context) (Summary, error) {
	if s.Stats == nil {
		return nil, missing("summary")
	}
	return s.Stats, nil
}

func (s *Snapshot) Correlation(ctx context.Context) (CorrelationMatrix, error) {
	if s.Matrix == nil {
		return nil, missing("correlation")
	}
	return s.Matrix, nil
}

func (s *Snapshot) SurvivalRates(ctx context.Context) (*SurvivalRates, error) {
	if s.Rates == nil {
		return nil, missing("survival_rates")
	}
	return s.Rates, nil
}

// Page slices the stored records the same way the backend paginates.
func (s *Snapshot) Page(ctx context.Context, page, perPage int) (*DataPage, error) {
	if s.Records == nil {
		return nil, missing("records")
	}
	if perPage <= 0 {
		perPage = 10
	}
	total := len(s.Records)
	start := (page - 1) * perPage
	if start < 0 {
		start = 0
	}
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	rows := make([]Record, end-start)
	copy(rows, s.Records[start:end])
	return &DataPage{
		Data:         rows,
		TotalRecords: total,
		Page:         page,
		PerPage:      perPage,
		TotalPages:   (total + perPage - 1) / perPage,
	}, nil
}

func (s *Snapshot) Count(ctx context.Context) (int, error) {
	if s.Records == nil {
		return 0, missing("records")
	}
	return len(s.Records), nil
}

func (s *Snapshot) Regression(ctx context.Context) (*RegressionResult, error) {
	if s.Model == nil {
		return nil, missing("regression")
	}
	return s.Model, nil
}

func (s *Snapshot) FeatureAnalysis(ctx context.Context) (FeatureAnalysis, error) {
	if s.Features == nil {
		return nil, missing("feature_analysis")
	}
	return s.Features, nil
}

func (s *Snapshot) Ping(ctx context.Context) error { return ErrUnsupported }

func (s *Snapshot) Health(ctx context.Context) (*Health, error) { return nil, ErrUnsupported }

func (s *Snapshot) SetContext(ctx context.Context, view string) error { return ErrUnsupported }

func (s *Snapshot) QuickActions(ctx context.Context, view string) ([]QuickAction, error) {
	return nil, ErrUnsupported
}

func (s *Snapshot) Chat(ctx context.Context, question, view string) (json.RawMessage, error) {
	return nil, ErrUnsupported
}

func (s *Snapshot) Tour(ctx context.Context, kind string) ([]TourStep, error) {
	return nil, ErrUnsupported
}

// yamlToJSON converts a YAML document to JSON keeping mapping key order,
// which a round trip through map[string]any would lose.
func yamlToJSON(b []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeNode(&buf, &doc); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return []byte("{}"), nil
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return writeNode(buf, n.Content[0])
	case yaml.AliasNode:
		return writeNode(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(n.Content[i].Value)
			buf.Write(k)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		return writeScalar(buf, n)
	default:
		return fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatBool(v))
	case "!!int", "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			// .nan and .inf have no JSON form
			buf.WriteString("null")
			return nil
		}
		buf.Write(b)
	default:
		b, _ := json.Marshal(n.Value)
		buf.Write(b)
	}
	return nil
}
