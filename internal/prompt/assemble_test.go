package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAssemble_MinimalConfig(t *testing.T) {
	got, err := Assemble(Config{Instruction: Text("Answer the question.")}, "What is a store?", nil)
	require.NoError(t, err)

	want := "Your task is as follows:\nAnswer the question.\n\n" +
		"Here is the content you need to work with:\n<<<BEGIN CONTENT>>>\n\n```\nWhat is a store?\n```\n<<<END CONTENT>>>\n\n" +
		"Now perform the task as instructed above."
	assert.Equal(t, want, got)
}

func TestAssemble_MissingInstruction(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{Role: "Helper", Goal: "Help."},
		{Instruction: Text("   ")},
		{Instruction: List()},
	} {
		_, err := Assemble(cfg, "input", nil)
		assert.ErrorIs(t, err, ErrConfig)
	}
}

func TestAssemble_InstructionListIsBulleted(t *testing.T) {
	got, err := Assemble(Config{Instruction: List("Greet the user.", "Answer briefly.")}, "", nil)
	require.NoError(t, err)
	assert.Equal(t,
		"Your task is as follows:\n- Greet the user.\n- Answer briefly.\n\nNow perform the task as instructed above.",
		got)
}

func TestAssemble_EmptyInputOmitsContentBlock(t *testing.T) {
	got, err := Assemble(Config{Instruction: Text("Do it.")}, "  \n ", nil)
	require.NoError(t, err)
	assert.NotContains(t, got, "<<<BEGIN CONTENT>>>")
}

func TestAssemble_AllSectionsInOrder(t *testing.T) {
	cfg := Config{
		Role:              "A Support agent",
		Instruction:       Text("Help with stores."),
		Context:           Text("Docs cover payments."),
		OutputConstraints: List("Be concise."),
		StyleOrTone:       List("Friendly."),
		OutputFormat:      Text("Plain text."),
		Examples:          List("Q: hi\nA: hello", "Q: price?\nA: see plans"),
		Goal:              "Resolve the question.",
		ReasoningStrategy: "CoT",
	}

	got, err := Assemble(cfg, "  How do refunds work?  ", DefaultStrategies())
	require.NoError(t, err)

	parts := strings.Split(got, "\n\n")
	want := []string{
		"You are a Support agent.",
		"Your task is as follows:\nHelp with stores.",
		"Here’s some background that may help you:\nDocs cover payments.",
		"Ensure your response follows these rules:\n- Be concise.",
		"Follow these style and tone guidelines in your response:\n- Friendly.",
		"Structure your response as follows:\nPlain text.",
		"Here are some examples to guide your response:",
		"Example 1:\nQ: hi\nA: hello",
		"Example 2:\nQ: price?\nA: see plans",
		"Your goal is to achieve the following outcome:\nResolve the question.",
		"Here is the content you need to work with:\n<<<BEGIN CONTENT>>>",
		"```\nHow do refunds work?\n```\n<<<END CONTENT>>>",
		DefaultStrategies()["CoT"],
		"Now perform the task as instructed above.",
	}
	assert.Equal(t, want, parts)
}

func TestAssemble_ScalarExamplesPushedAsIs(t *testing.T) {
	got, err := Assemble(Config{Instruction: Text("x"), Examples: Text("Input: a\nOutput: b")}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, got, "Here are some examples to guide your response:\n\nInput: a\nOutput: b")
	assert.NotContains(t, got, "Example 1:")
}

func TestAssemble_ReasoningStrategy(t *testing.T) {
	strategies := map[string]string{"RAG": "  Use the sources.  "}

	tests := []struct {
		name     string
		strategy string
		want     bool
	}{
		{"known", "RAG", true},
		{"none", "None", false},
		{"unknown", "Tree", false},
		{"unset", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Assemble(Config{Instruction: Text("x"), ReasoningStrategy: tt.strategy}, "", strategies)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Contains(got, "\n\nUse the sources.\n\n"))
		})
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	cfg := Config{Role: "Bot", Instruction: List("a", "b"), Context: Text("c")}
	a, err := Assemble(cfg, "q", nil)
	require.NoError(t, err)
	b, err := Assemble(cfg, "q", nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestConfig_WithContextDoesNotMutateBase(t *testing.T) {
	items := make([]string, 1, 4)
	items[0] = "Docs cover payments."
	base := Config{Instruction: Text("x"), Context: StringList{Items: items}}

	dyn := base.WithContext("Relevant sources: ...", "", "user: hi")

	assert.Equal(t, []string{"Docs cover payments."}, base.Context.Items)
	assert.Equal(t, []string{"Docs cover payments.", "Relevant sources: ...", "user: hi"}, dyn.Context.Items)

	got, err := Assemble(dyn, "", nil)
	require.NoError(t, err)
	assert.Contains(t, got, "Here’s some background that may help you:\nDocs cover payments.\n\nRelevant sources: ...\n\nuser: hi")
}

func TestStringList_UnmarshalYAML(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte("instruction: Do it\noutput_constraints:\n  - one\n  - two\n"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, Text("Do it"), cfg.Instruction)
	assert.Equal(t, List("one", "two"), cfg.OutputConstraints)

	err = yaml.Unmarshal([]byte("instruction:\n  key: value\n"), &cfg)
	assert.Error(t, err)
}

func TestStringList_UnmarshalJSON(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"instruction":"Do it","examples":["a","b"]}`), &cfg))
	assert.Equal(t, Text("Do it"), cfg.Instruction)
	assert.Equal(t, List("a", "b"), cfg.Examples)

	assert.Error(t, json.Unmarshal([]byte(`{"instruction":42}`), &cfg))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
prompt:
  role: Store helper
  instruction:
    - Answer questions.
  reasoning_strategy: RAG
reasoning_strategies:
  RAG: Custom RAG text.
`), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Store helper", f.Prompt.Role)
	assert.Equal(t, "Custom RAG text.", f.ReasoningStrategies["RAG"])
	assert.Equal(t, DefaultStrategies()["CoT"], f.ReasoningStrategies["CoT"])
}

func TestLoadFile_MissingInstruction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompt:\n  role: Nobody\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadFile_ShippedAssistantConfig(t *testing.T) {
	f, err := LoadFile(filepath.Join("..", "..", "prompts", "assistant.yaml"))
	require.NoError(t, err)

	got, err := Assemble(f.Prompt, "hi", f.ReasoningStrategies)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "You are an AI assistant for Ethify"))
	assert.Contains(t, got, "Example 2:\nInput: \"How do I customize my store theme?\"")
	assert.True(t, strings.HasSuffix(got, finalDirective))
}

func TestAssemble_BackgroundLeadInUsesTypographicApostrophe(t *testing.T) {
	cfg := Config{Instruction: Text("Answer."), Context: Text("Docs.")}

	got, err := Assemble(cfg, "", nil)
	require.NoError(t, err)
	assert.Contains(t, got, "Here’s some background that may help you:")
	assert.NotContains(t, got, "Here's")
}
