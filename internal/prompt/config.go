package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StringList is a prompt field written either as a single string or as a
// list of strings. The two forms render differently.
type StringList struct {
	Items []string
	List  bool
}

// Text returns a scalar field.
func Text(s string) StringList {
	if s == "" {
		return StringList{}
	}
	return StringList{Items: []string{s}}
}

// List returns a list field.
func List(items ...string) StringList {
	return StringList{Items: items, List: true}
}

func (s StringList) IsZero() bool {
	for _, it := range s.Items {
		if strings.TrimSpace(it) != "" {
			return false
		}
	}
	return true
}

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v string
		if err := value.Decode(&v); err != nil {
			return err
		}
		*s = Text(v)
	case yaml.SequenceNode:
		var v []string
		if err := value.Decode(&v); err != nil {
			return err
		}
		*s = List(v...)
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
	return nil
}

func (s *StringList) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Text(str)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*s = List(list...)
	return nil
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if s.List {
		return json.Marshal(s.Items)
	}
	return json.Marshal(strings.Join(s.Items, ""))
}

// Config is the structured prompt template. Only Instruction is required.
type Config struct {
	Role              string     `yaml:"role" json:"role,omitempty"`
	Instruction       StringList `yaml:"instruction" json:"instruction"`
	Context           StringList `yaml:"context" json:"context,omitempty"`
	OutputConstraints StringList `yaml:"output_constraints" json:"output_constraints,omitempty"`
	StyleOrTone       StringList `yaml:"style_or_tone" json:"style_or_tone,omitempty"`
	OutputFormat      StringList `yaml:"output_format" json:"output_format,omitempty"`
	Examples          StringList `yaml:"examples" json:"examples,omitempty"`
	Goal              string     `yaml:"goal" json:"goal,omitempty"`
	ReasoningStrategy string     `yaml:"reasoning_strategy" json:"reasoning_strategy,omitempty"`
}

// WithContext returns a copy of c whose context ends with the extra blocks.
// c itself is left untouched.
func (c Config) WithContext(extra ...string) Config {
	items := make([]string, 0, len(c.Context.Items)+len(extra))
	items = append(items, c.Context.Items...)
	for _, e := range extra {
		if strings.TrimSpace(e) != "" {
			items = append(items, e)
		}
	}
	c.Context = StringList{Items: items, List: len(items) > 1}
	return c
}

// File is the on-disk prompt configuration.
type File struct {
	Prompt              Config            `yaml:"prompt"`
	ReasoningStrategies map[string]string `yaml:"reasoning_strategies"`
}

// LoadFile reads a YAML prompt file. Strategies from the file override the
// defaults of the same name.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing prompt file %s: %v: %w", path, err, ErrConfig)
	}
	if f.Prompt.Instruction.IsZero() {
		return nil, fmt.Errorf("prompt file %s: %w", path, errMissingInstruction)
	}

	strategies := DefaultStrategies()
	for name, text := range f.ReasoningStrategies {
		strategies[name] = text
	}
	f.ReasoningStrategies = strategies
	return &f, nil
}

// DefaultStrategies returns a fresh copy of the built-in reasoning fragments.
func DefaultStrategies() map[string]string {
	return map[string]string{
		"RAG": "Base your answer on the background information above. " +
			"If it does not contain the answer, say so instead of guessing.",
		"CoT": "Think through the problem step by step before giving your final answer.",
		"ReAct": "Alternate between reasoning about what you still need to know and checking " +
			"the provided content for it. Answer once the content supports a conclusion.",
		"Self-Ask": "Break the question into smaller follow-up questions, answer each of them, " +
			"then combine those answers into your final response.",
	}
}
