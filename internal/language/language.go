package language

import (
	"errors"
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrInvalidTag reports input that is not a usable BCP 47 language tag.
var ErrInvalidTag = errors.New("invalid language tag")

type entry struct {
	code2 string   // ISO 639-1
	code3 string   // ISO 639-2/T
	alt3  string   // ISO 639-2/B when it differs
	words []string // English word forms accepted as input
}

var languages = []entry{
	{"en", "eng", "", []string{"english"}},
	{"es", "spa", "", []string{"spanish", "espanol", "español"}},
	{"fr", "fra", "fre", []string{"french"}},
	{"de", "deu", "ger", []string{"german"}},
	{"it", "ita", "", []string{"italian"}},
	{"pt", "por", "", []string{"portuguese"}},
	{"ja", "jpn", "", []string{"japanese"}},
	{"ko", "kor", "", []string{"korean"}},
	{"zh", "zho", "chi", []string{"chinese"}},
	{"ru", "rus", "", []string{"russian"}},
	{"ar", "ara", "", []string{"arabic"}},
	{"hi", "hin", "", []string{"hindi"}},
	{"nl", "nld", "dut", []string{"dutch"}},
	{"pl", "pol", "", []string{"polish"}},
	{"sv", "swe", "", []string{"swedish"}},
	{"tr", "tur", "", []string{"turkish"}},
	{"uk", "ukr", "", []string{"ukrainian"}},
}

var aliases = func() map[string]string {
	m := make(map[string]string, len(languages)*4)
	for _, e := range languages {
		m[e.code3] = e.code2
		if e.alt3 != "" {
			m[e.alt3] = e.code2
		}
		for _, w := range e.words {
			m[w] = e.code2
		}
	}
	return m
}()

// Normalize returns the canonical BCP 47 form of tag, e.g. "pt-br" becomes
// "pt-BR". ISO 639-2 codes and English names of common languages are
// accepted and mapped to their two-letter form.
func Normalize(tag string) (string, error) {
	parsed, err := Parse(tag)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// Parse is Normalize returning the x/text tag.
func Parse(tag string) (xlang.Tag, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if raw == "" {
		return xlang.Und, fmt.Errorf("%w: empty", ErrInvalidTag)
	}
	if code, ok := aliases[strings.ToLower(raw)]; ok {
		raw = code
	}
	parsed, err := xlang.Parse(raw)
	if err != nil {
		return xlang.Und, fmt.Errorf("%w %q: %v", ErrInvalidTag, tag, err)
	}
	if parsed == xlang.Und {
		return xlang.Und, fmt.Errorf("%w %q: undetermined", ErrInvalidTag, tag)
	}
	return parsed, nil
}

// Base returns the primary language subtag of tag ("pt-BR" gives "pt").
// Unparsable input yields an empty string.
func Base(tag string) string {
	parsed, err := Parse(tag)
	if err != nil {
		return ""
	}
	base, _ := parsed.Base()
	return base.String()
}

// DisplayName returns the English name of tag, or the raw input uppercased
// when it cannot be parsed.
func DisplayName(tag string) string {
	if strings.TrimSpace(tag) == "" {
		return "Unknown"
	}
	parsed, err := Parse(tag)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(tag))
	}
	if name := display.English.Tags().Name(parsed); name != "" {
		return name
	}
	return parsed.String()
}
