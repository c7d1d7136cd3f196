package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hexstore/internal/document"
)

// Scenario is a scripted sequence of requests and clock movements.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ShelfLife overrides the record lifetime (default 1h).
	ShelfLife string `yaml:"shelf_life,omitempty"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// FinalCount, when set, is the number of records expected at the end.
	FinalCount *int64 `yaml:"final_count,omitempty"`
}

// Step is one operation of a scenario.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Pattern is sent as-is. Omit it to send a request without one.
	Pattern *string `yaml:"pattern,omitempty"`

	// Iota is the document to put.
	Iota *Iota `yaml:"iota,omitempty"`

	// RawHex is a literal payload to put, for malformed input.
	RawHex string `yaml:"raw_hex,omitempty"`

	// Capability selects the delete capability: "issued" or "wrong".
	Capability string `yaml:"capability,omitempty"`

	// Duration is how far advance moves the clock.
	Duration string `yaml:"duration,omitempty"`

	// Expect, when set, is checked against the step's outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Iota describes a document compactly. At most one of Number, Text,
// Items and Fields is used, in that order; none gives empty data.
type Iota struct {
	Type   string            `yaml:"type"`
	Number *float64          `yaml:"number,omitempty"`
	Text   *string           `yaml:"text,omitempty"`
	Items  []Iota            `yaml:"items,omitempty"`
	Fields map[string]string `yaml:"fields,omitempty"`
}

// Expect is the expected outcome of a step. Empty fields are not checked.
type Expect struct {
	// Packet is the reply type name, e.g. "PutSuccess".
	Packet string `yaml:"packet,omitempty"`

	// Code and Message match an ErrorResponse.
	Code    uint16 `yaml:"code,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Tag is the root tag of a GetSuccess payload or of a PutSuccess
	// sanitized entity.
	Tag string `yaml:"tag,omitempty"`

	// Sanitized says whether a PutSuccess carries a sanitized entity.
	Sanitized *bool `yaml:"sanitized,omitempty"`

	// Removed is the number of records a prune step removes.
	Removed *int64 `yaml:"removed,omitempty"`
}

// Step operations.
const (
	OpPut     = "put"
	OpGet     = "get"
	OpDelete  = "delete"
	OpAdvance = "advance"
	OpPrune   = "prune"
)

// Delete capability selectors.
const (
	CapabilityIssued = "issued"
	CapabilityWrong  = "wrong"
)

// Document builds the document described by i.
func (i Iota) Document() document.Compound {
	switch {
	case i.Number != nil:
		return document.New(i.Type, document.Double(*i.Number))
	case i.Text != nil:
		return document.New(i.Type, document.String(*i.Text))
	case len(i.Items) > 0:
		items := make(document.List, len(i.Items))
		for n, item := range i.Items {
			items[n] = item.Document()
		}
		return document.New(i.Type, items)
	case len(i.Fields) > 0:
		names := make([]string, 0, len(i.Fields))
		for name := range i.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		data := make(document.Compound, 0, len(names))
		for _, name := range names {
			data = append(data, document.C(name, document.String(i.Fields[name])))
		}
		return document.New(i.Type, data)
	default:
		return document.New(i.Type, document.Compound{})
	}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.ShelfLife != "" {
		if d, err := time.ParseDuration(s.ShelfLife); err != nil || d <= 0 {
			return fmt.Errorf("shelf_life %q is not a positive duration", s.ShelfLife)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpPut:
		if st.Iota != nil && st.RawHex != "" {
			return fmt.Errorf("steps[%d]: iota and raw_hex are exclusive", index)
		}
		if st.Iota != nil && st.Iota.Type == "" {
			return fmt.Errorf("steps[%d]: iota type is required", index)
		}
	case OpGet:
	case OpDelete:
		switch st.Capability {
		case "", CapabilityIssued, CapabilityWrong:
		default:
			return fmt.Errorf("steps[%d]: unknown capability %q", index, st.Capability)
		}
	case OpAdvance:
		if _, err := time.ParseDuration(st.Duration); err != nil {
			return fmt.Errorf("steps[%d]: invalid duration %q", index, st.Duration)
		}
	case OpPrune:
		if st.Expect != nil && st.Expect.Packet != "" {
			return fmt.Errorf("steps[%d]: prune has no reply packet", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}
