// Package inbox lets out-of-process workers report execution outcomes by
// dropping YAML or JSON files into a watched directory.
package inbox

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// ErrMalformedOutcome is returned when an outcome file cannot be parsed or
// holds an invalid outcome.
var ErrMalformedOutcome = errors.New("malformed outcome")

// ParseOutcomes decodes one outcome or a list of outcomes. JSON input is
// accepted since it is valid YAML.
func ParseOutcomes(data []byte) ([]models.Outcome, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedOutcome)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutcome, err)
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedOutcome)
	}

	var outcomes []models.Outcome
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&outcomes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutcome, err)
		}
	case yaml.MappingNode:
		var o models.Outcome
		if err := root.Decode(&o); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutcome, err)
		}
		outcomes = append(outcomes, o)
	default:
		return nil, fmt.Errorf("%w: expected a mapping or a list", ErrMalformedOutcome)
	}

	for i, o := range outcomes {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedOutcome, i, err)
		}
	}
	return outcomes, nil
}

// isOutcomeFile reports whether name is a file the inbox should consume.
// Dotfiles are skipped so writers can stage content and rename it in.
func isOutcomeFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
