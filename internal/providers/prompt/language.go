package prompt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoLanguageToken is the value the editor sends when the card should use the
// city's own language.
const AutoLanguageToken = "Local (Auto)"

const (
	autoLanguageInstruction      = "the city's local native language"
	autoImageLanguageInstruction = "該城市的當地母語語言"
)

// Language is the target language of a weather card. The zero value means
// "use the city's native language".
type Language struct {
	name string
}

// AutoLanguage asks the model to localize into the city's own language.
var AutoLanguage = Language{}

// ParseLanguage normalizes the client supplied language preference. BCP-47 tags
// are resolved to their English display name so the model always receives a
// human readable language.
func ParseLanguage(raw string) Language {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "", "auto", "local", strings.ToLower(AutoLanguageToken):
		return AutoLanguage
	}
	if !strings.ContainsAny(value, " \t") {
		if tag, err := language.Parse(value); err == nil {
			if name := display.English.Tags().Name(tag); name != "" {
				return Language{name: name}
			}
		}
	}
	if value == strings.ToLower(value) {
		value = cases.Title(language.English).String(value)
	}
	return Language{name: value}
}

// IsAuto reports whether the language is the native-language sentinel.
func (l Language) IsAuto() bool { return l.name == "" }

// String returns the token the editor would send for l.
func (l Language) String() string {
	if l.IsAuto() {
		return AutoLanguageToken
	}
	return l.name
}

// Instruction is the phrase substituted into every localization instruction.
func (l Language) Instruction() string {
	if l.IsAuto() {
		return autoLanguageInstruction
	}
	return `"` + l.name + `"`
}

// imageInstruction is the phrase used for on-image text in the image template.
func (l Language) imageInstruction() string {
	if l.IsAuto() {
		return autoImageLanguageInstruction
	}
	return `"` + l.name + `"`
}
