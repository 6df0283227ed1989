package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Sentinel delimiters that mark substituted user content as data rather than
// instruction. The grading templates tell the model to treat everything
// between them as untrusted.
const (
	UserInputStart = "---USER_INPUT_START---"
	UserInputEnd   = "---USER_INPUT_END---"
)

// userInputFields is the fixed allow-list of placeholder names whose values
// originate from end users and therefore get wrapped in sentinel delimiters.
var userInputFields = map[string]bool{
	"USER_ANSWER":  true,
	"CODE":         true,
	"QUESTION":     true,
	"IDEAL_POINTS": true,
	"CHAT_MESSAGE": true,
	"GOAL":         true,
	"TOPIC":        true,
}

// Loader reads prompt templates by name from a fixed directory.
type Loader struct {
	dir string
}

// NewLoader constructs a template loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load returns the raw template text for the given name.
func (l *Loader) Load(name string) (string, error) {
	path := filepath.Join(l.dir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load template %q: %w", name, err)
	}
	return string(data), nil
}

var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Render substitutes {{NAME}} placeholders with the supplied variables in a
// single pass over the template. Substitution is literal: variable values are
// never re-scanned, so template syntax inside user content stays inert.
// Values for names on the user-input allow-list are wrapped in sentinel
// delimiters first. Placeholders with no supplied variable are left untouched.
func Render(template string, variables map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.Trim(match, "{}")
		value, ok := variables[name]
		if !ok {
			return match
		}
		if userInputFields[name] {
			return UserInputStart + "\n" + value + "\n" + UserInputEnd
		}
		return value
	})
}

// IsUserInputField reports whether the placeholder name is on the user-input
// allow-list.
func IsUserInputField(name string) bool {
	return userInputFields[name]
}
