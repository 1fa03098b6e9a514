package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Languages WhisperX can transcribe, as ISO 639-1 codes.
var supported = []string{
	"af", "ar", "be", "bg", "bn", "bs", "ca", "cs", "cy", "da", "de", "el",
	"en", "es", "et", "eu", "fa", "fi", "fr", "gl", "he", "hi", "hr", "hu",
	"hy", "id", "is", "it", "ja", "ka", "kk", "ko", "lt", "lv", "mk", "ml",
	"mr", "ms", "nl", "no", "pl", "pt", "ro", "ru", "sk", "sl", "sr", "sv",
	"sw", "ta", "th", "tl", "tr", "uk", "ur", "vi", "zh",
}

// ISO 639-2/B codes that the CLDR tables do not resolve.
var bibliographic = map[string]string{
	"alb": "sq", "arm": "hy", "baq": "eu", "chi": "zh", "cze": "cs",
	"dut": "nl", "fre": "fr", "geo": "ka", "ger": "de", "gre": "el",
	"ice": "is", "mac": "mk", "may": "ms", "per": "fa", "rum": "ro",
	"slo": "sk", "wel": "cy",
}

var (
	byName  map[string]string
	namer   = display.English.Languages()
	autoSet = map[string]struct{}{"auto": {}, "automatic": {}, "detect": {}, "none": {}}
)

func init() {
	byName = make(map[string]string, len(supported)*2)
	for _, code := range supported {
		tag := xlang.Make(code)
		if name := namer.Name(tag); name != "" {
			byName[strings.ToLower(name)] = code
		}
		if self := display.Self.Name(tag); self != "" {
			byName[strings.ToLower(self)] = code
		}
	}
}

// ToISO2 converts a language name, ISO 639 code, or BCP 47 tag to ISO 639-1.
// Returns empty string for unrecognized input and for "auto" style values,
// which mean the engine should detect the language itself.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if _, ok := autoSet[code]; ok {
		return ""
	}
	if mapped, ok := byName[code]; ok {
		return mapped
	}
	if mapped, ok := bibliographic[code]; ok {
		return mapped
	}
	if tag, err := xlang.Parse(code); err == nil {
		base, _ := tag.Base()
		if s := base.String(); len(s) == 2 {
			return s
		}
	}
	if len(code) == 2 && isLetters(code) {
		return code
	}
	return ""
}

// DisplayName returns the English name for any recognized code.
// Returns "Auto-detect" for empty input, or the uppercased code when unknown.
func DisplayName(code string) string {
	iso2 := ToISO2(code)
	if iso2 == "" {
		if strings.TrimSpace(code) == "" {
			return "Auto-detect"
		}
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := namer.Name(xlang.Make(iso2)); name != "" {
		return name
	}
	return strings.ToUpper(iso2)
}

// Supported reports whether WhisperX ships a model for the language. Empty
// and auto-detect values are supported since the engine picks the language.
func Supported(code string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return true
	}
	if _, ok := autoSet[trimmed]; ok {
		return true
	}
	iso2 := ToISO2(trimmed)
	for _, s := range supported {
		if s == iso2 {
			return true
		}
	}
	return false
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
