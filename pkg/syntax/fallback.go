package syntax

import (
	"strings"
	"unicode"
)

// colorWords maps natural-language color words to Scryfall color letters.
var colorWords = map[string]string{
	"white": "w", "blue": "u", "black": "b", "red": "r", "green": "g",
}

// typeWords are card types recognized verbatim in free text.
var typeWords = map[string]bool{
	"creature": true, "instant": true, "sorcery": true, "artifact": true,
	"enchantment": true, "planeswalker": true, "land": true, "battle": true,
	"legendary": true, "token": true, "tribal": true,
}

// mechanicTags maps common deckbuilding vocabulary to oracle tags.
var mechanicTags = map[string]string{
	"ramp":         "ramp",
	"removal":      "removal",
	"draw":         "card-draw",
	"cantrip":      "cantrip",
	"counterspell": "counterspell",
	"counter":      "counterspell",
	"lifegain":     "lifegain",
	"tokens":       "token-generator",
	"sacrifice":    "sacrifice-outlet",
	"graveyard":    "graveyard-hate",
	"burn":         "burn",
	"mill":         "mill",
	"tutor":        "tutor",
	"reanimate":    "reanimate",
	"flicker":      "flicker",
}

// keywordWords are evergreen keyword abilities searched via kw:.
var keywordWords = map[string]bool{
	"flying": true, "trample": true, "haste": true, "deathtouch": true,
	"lifelink": true, "vigilance": true, "menace": true, "reach": true,
	"hexproof": true, "flash": true, "defender": true, "indestructible": true,
}

// BuildFallbackQuery derives a best-effort Scryfall query directly from free
// text. It is the degraded path used when the translation service times out or
// fails: pure, synchronous and total. For any non-empty input it returns a
// non-empty, structurally valid query, no matter how pathological the input.
func BuildFallbackQuery(freeText string) string {
	text := CollapseWhitespace(freeText)
	if text == "" {
		if freeText == "" {
			return ""
		}
		// whitespace-only input still has to produce something searchable
		return "is:spell"
	}

	var colors []string
	var parts []string
	var nameWords []string
	seenColor := map[string]bool{}

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		if word == "" {
			continue
		}
		switch {
		case colorWords[word] != "":
			if !seenColor[word] {
				seenColor[word] = true
				colors = append(colors, colorWords[word])
			}
		case typeWords[word]:
			parts = append(parts, "t:"+word)
		case mechanicTags[word] != "":
			parts = append(parts, "otag:"+mechanicTags[word])
		case keywordWords[word]:
			parts = append(parts, "kw:"+word)
		case word == "cheap":
			parts = append(parts, "mv<=2")
		case word == "expensive":
			parts = append(parts, "mv>=6")
		default:
			nameWords = append(nameWords, word)
		}
	}

	if len(colors) > 0 {
		parts = append(parts, "c:"+strings.Join(colors, ""))
	}
	if len(nameWords) > 0 {
		parts = append(parts, nameTerm(strings.Join(nameWords, " ")))
	}

	if len(parts) == 0 {
		// nothing recognizable and nothing quotable: all structure was
		// stripped, fall back to a harmless catch-all
		if term := nameTerm(text); term != "" {
			return term
		}
		return "is:spell"
	}
	return strings.Join(parts, " ")
}

// nameTerm quotes free text as a name search. Embedded quotes and backslashes
// are dropped rather than escaped so the produced term can never unbalance the
// query. Returns "" when nothing quotable remains.
func nameTerm(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' {
			return -1
		}
		return r
	}, text)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	if !strings.ContainsAny(cleaned, " :<>=()") {
		return cleaned
	}
	return `"` + cleaned + `"`
}
