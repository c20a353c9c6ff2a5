// Package prompt renders a structured prompt template into the single text
// prompt sent to the generation model.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrConfig marks an unusable prompt configuration.
var ErrConfig = errors.New("prompt config error")

var errMissingInstruction = fmt.Errorf("missing required field 'instruction': %w", ErrConfig)

const finalDirective = "Now perform the task as instructed above."

// Assemble renders cfg and the input payload. Sections appear in a fixed
// order separated by blank lines; empty optional fields are skipped.
func Assemble(cfg Config, input string, strategies map[string]string) (string, error) {
	if cfg.Instruction.IsZero() {
		return "", errMissingInstruction
	}

	var parts []string

	if role := strings.TrimSpace(cfg.Role); role != "" {
		parts = append(parts, fmt.Sprintf("You are %s.", lowerFirst(role)))
	}

	parts = append(parts, section("Your task is as follows:", cfg.Instruction))

	if !cfg.Context.IsZero() {
		parts = append(parts, "Here’s some background that may help you:\n"+strings.Join(cfg.Context.Items, "\n\n"))
	}
	if !cfg.OutputConstraints.IsZero() {
		parts = append(parts, section("Ensure your response follows these rules:", cfg.OutputConstraints))
	}
	if !cfg.StyleOrTone.IsZero() {
		parts = append(parts, section("Follow these style and tone guidelines in your response:", cfg.StyleOrTone))
	}
	if !cfg.OutputFormat.IsZero() {
		parts = append(parts, section("Structure your response as follows:", cfg.OutputFormat))
	}

	if !cfg.Examples.IsZero() {
		parts = append(parts, "Here are some examples to guide your response:")
		if cfg.Examples.List {
			for i, ex := range cfg.Examples.Items {
				parts = append(parts, fmt.Sprintf("Example %d:\n%s", i+1, ex))
			}
		} else {
			parts = append(parts, strings.Join(cfg.Examples.Items, ""))
		}
	}

	if goal := strings.TrimSpace(cfg.Goal); goal != "" {
		parts = append(parts, "Your goal is to achieve the following outcome:\n"+cfg.Goal)
	}

	if in := strings.TrimSpace(input); in != "" {
		parts = append(parts,
			"Here is the content you need to work with:\n<<<BEGIN CONTENT>>>\n\n```\n"+in+"\n```\n<<<END CONTENT>>>")
	}

	if name := cfg.ReasoningStrategy; name != "" && name != "None" {
		if text := strings.TrimSpace(strategies[name]); text != "" {
			parts = append(parts, text)
		}
	}

	parts = append(parts, finalDirective)
	return strings.Join(parts, "\n\n"), nil
}

func section(leadIn string, v StringList) string {
	if !v.List {
		return leadIn + "\n" + strings.Join(v.Items, "")
	}
	lines := make([]string, len(v.Items))
	for i, it := range v.Items {
		lines[i] = "- " + it
	}
	return leadIn + "\n" + strings.Join(lines, "\n")
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
