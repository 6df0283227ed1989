package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxInputLength bounds any single user-supplied field passed to the LLM core.
const MaxInputLength = 100000

// MaskPlaceholder replaces rejected content when the caller opts into lenient handling.
const MaskPlaceholder = "[message removed: policy violation]"

// Options tunes sanitization for a specific field.
type Options struct {
	// AllowBase64 disables the high-entropy payload check. Set it for fields
	// that legitimately carry source code or encoded blobs.
	AllowBase64 bool
}

// InjectionError reports a prompt-injection attempt or otherwise unsafe input.
type InjectionError struct {
	Field    string
	Patterns []string
	message  string
}

func (e *InjectionError) Error() string {
	if len(e.Patterns) > 0 {
		return fmt.Sprintf("prompt injection detected in field %q: %s", e.Field, strings.Join(e.Patterns, ", "))
	}
	return fmt.Sprintf("invalid input in field %q: %s", e.Field, e.message)
}

type injectionPattern struct {
	name string
	re   *regexp.Regexp
}

// Covers English and Japanese phrasings; the platform serves both locales.
var injectionPatterns = []injectionPattern{
	{"ignore_instructions", regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior|above|earlier)\s+instructions`)},
	{"disregard_instructions", regexp.MustCompile(`(?i)disregard\s+(?:all\s+)?(?:previous|prior|above|earlier)\s+(?:instructions|prompts)`)},
	{"forget_instructions", regexp.MustCompile(`(?i)forget\s+(?:everything|all previous instructions)`)},
	{"role_spoof", regexp.MustCompile(`(?im)^\s*(?:system|assistant|user)\s*:`)},
	{"role_reassignment", regexp.MustCompile(`(?i)you\s+are\s+now\s+`)},
	{"new_instructions", regexp.MustCompile(`(?i)new\s+instructions?\s*:`)},
	{"prompt_leak", regexp.MustCompile(`(?i)(?:reveal|print|show)\s+(?:your|the)\s+(?:system\s+)?prompt`)},
	{"ignore_instructions_ja", regexp.MustCompile(`(?:前|以前|上記)の指示を無視`)},
	{"disregard_instructions_ja", regexp.MustCompile(`指示を(?:無視|忘れて)`)},
	{"role_spoof_ja", regexp.MustCompile(`(?m)^\s*(?:システム|アシスタント|ユーザー)\s*[:：]`)},
	{"role_reassignment_ja", regexp.MustCompile(`あなたは今から`)},
}

// base64Run matches long unbroken runs of base64 alphabet, a common smuggling
// vector for encoded instructions.
var base64Run = regexp.MustCompile(`[A-Za-z0-9+/]{200,}={0,2}`)

// Sanitize validates user-supplied text before it is embedded into a prompt.
// It returns the input unchanged when clean, or an *InjectionError naming the
// offending field and every matched pattern. It never mutates the input.
func Sanitize(value, fieldName string, opts Options) (string, error) {
	if len(value) > MaxInputLength {
		return "", &InjectionError{
			Field:   fieldName,
			message: fmt.Sprintf("input too long: %d characters exceeds limit of %d", len(value), MaxInputLength),
		}
	}

	for _, r := range value {
		if isForbiddenControl(r) {
			return "", &InjectionError{
				Field:   fieldName,
				message: fmt.Sprintf("control character U+%04X not allowed", r),
			}
		}
	}

	var matched []string
	for _, p := range injectionPatterns {
		if p.re.MatchString(value) {
			matched = append(matched, p.name)
		}
	}

	if !opts.AllowBase64 && base64Run.MatchString(value) {
		matched = append(matched, "base64_payload")
	}

	if len(matched) > 0 {
		return "", &InjectionError{Field: fieldName, Patterns: matched}
	}

	return value, nil
}

// SanitizeOrMask applies the lenient policy: instead of failing the request,
// rejected content is replaced with a fixed placeholder. Used by the mentor
// chat path where a single bad message must not kill the conversation.
func SanitizeOrMask(value, fieldName string, opts Options) string {
	clean, err := Sanitize(value, fieldName, opts)
	if err != nil {
		return MaskPlaceholder
	}
	return clean
}

func isForbiddenControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r < 0x20 || r == 0x7f
}
