package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderWrapsUserInputFields(t *testing.T) {
	template := "Question:\n{{QUESTION}}\n\nAnswer:\n{{USER_ANSWER}}"
	out := Render(template, map[string]string{
		"QUESTION":    "What does this print?",
		"USER_ANSWER": "It prints x",
	})

	require.Contains(t, out, UserInputStart+"\nWhat does this print?\n"+UserInputEnd)
	require.Contains(t, out, UserInputStart+"\nIt prints x\n"+UserInputEnd)
}

func TestRenderWrapsChatTopic(t *testing.T) {
	// Topic comes from the chat request body, so it is user input too.
	out := Render("Current topic: {{TOPIC}}", map[string]string{"TOPIC": "recursion"})
	require.Contains(t, out, UserInputStart+"\nrecursion\n"+UserInputEnd)
}

func TestRenderSubstitutesNonUserFieldsVerbatim(t *testing.T) {
	out := Render("Language: {{LANGUAGE}}", map[string]string{"LANGUAGE": "go"})
	require.Equal(t, "Language: go", out)
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	out := Render("{{QUESTION}} and {{NOT_SUPPLIED}}", map[string]string{"QUESTION": "q"})
	require.Contains(t, out, "{{NOT_SUPPLIED}}")
	require.NotContains(t, out, "{{QUESTION}}")
}

func TestRenderDoesNotExpandValues(t *testing.T) {
	// A value containing template syntax must not be expanded recursively.
	out := Render("{{LANGUAGE}} {{MODEL}}", map[string]string{
		"LANGUAGE": "{{MODEL}}",
		"MODEL":    "gpt",
	})
	require.Equal(t, "{{MODEL}} gpt", out)
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.txt"), []byte("hello {{NAME}}"), 0o644))

	loader := NewLoader(dir)
	text, err := loader.Load("greeting")
	require.NoError(t, err)
	require.Equal(t, "hello {{NAME}}", text)

	_, err = loader.Load("missing")
	require.Error(t, err)
}
