package verify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// fold normalizes text for matching: NFKC, then Unicode case folding.
// ё folds to е so Russian spelling variants match.
func fold(s string) string {
	s = folder.String(norm.NFKC.String(s))
	return strings.ReplaceAll(s, "ё", "е")
}

var separators = strings.NewReplacer(",", "", ".", "")

var stopWords = map[string]bool{
	// English
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true, "to": true,
	"in": true, "on": true, "at": true, "for": true, "by": true, "with": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "has": true,
	"have": true, "had": true, "it": true, "its": true, "this": true, "that": true, "will": true,
	"as": true, "about": true, "after": true, "over": true, "into": true, "than": true, "but": true,
	"not": true, "no": true, "said": true, "says": true, "new": true, "more": true, "their": true,
	// Russian
	"и": true, "в": true, "во": true, "на": true, "с": true, "со": true, "по": true, "к": true,
	"о": true, "об": true, "от": true, "до": true, "за": true, "из": true, "для": true, "что": true,
	"это": true, "как": true, "не": true, "но": true, "или": true, "а": true, "же": true, "ли": true,
	"бы": true, "его": true, "ее": true, "их": true, "был": true, "была": true, "были": true,
	"будет": true, "после": true, "при": true, "также": true, "уже": true, "заявил": true,
}

// tokens splits text into folded content words. Numbers are kept with their
// separators removed, so "2,000" and "2000" match.
func tokens(s string) []string {
	words := strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ',' && r != '.' && r != '%'
	})

	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ",.")
		num := isNumber(w)
		w = separators.Replace(w)
		if w == "" || (!num && (utf8.RuneCountInString(w) < 2 || stopWords[w])) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isNumber(w string) bool {
	hasDigit := false
	for _, r := range w {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == ',' || r == '.' || r == '%':
		default:
			return false
		}
	}
	return hasDigit
}

// stem cuts a word to a fixed prefix. Crude, but enough to match inflected
// forms in both English and Russian ("layoffs"/"layoff", "сотрудников"/"сотрудники").
func stem(w string) string {
	const n = 5
	if isNumber(w) {
		return w
	}
	i := 0
	for pos := range w {
		if i == n {
			return w[:pos]
		}
		i++
	}
	return w
}

func stems(words []string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[stem(w)] = true
	}
	return out
}

// overlap is the share of claim content words present in text, in [0, 1]
func overlap(claim, text string) float64 {
	cw := stems(tokens(claim))
	if len(cw) == 0 {
		return 0
	}
	tw := stems(tokens(text))
	hit := 0
	for w := range cw {
		if tw[w] {
			hit++
		}
	}
	return float64(hit) / float64(len(cw))
}

// detectLanguage guesses the input language from its script
func detectLanguage(s string) string {
	var latin, cyrillic, other int
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
		case unicode.Is(unicode.Latin, r):
			latin++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		default:
			other++
		}
	}
	switch {
	case cyrillic > 0 && cyrillic >= latin && cyrillic >= other:
		return "ru"
	case latin > 0 && latin >= other:
		return "en"
	default:
		return "und"
	}
}

// sameLanguage compares the base languages of two BCP-47 tags
func sameLanguage(a, b string) bool {
	ta, err := language.Parse(a)
	if err != nil {
		return false
	}
	tb, err := language.Parse(b)
	if err != nil {
		return false
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

// transliterate romanizes Cyrillic letters and leaves everything else as is
func transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		lower := unicode.ToLower(r)
		latin, ok := cyrillicToLatin[lower]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if lower != r && latin != "" {
			latin = strings.ToUpper(latin[:1]) + latin[1:]
		}
		b.WriteString(latin)
	}
	return b.String()
}

// isLatin reports whether every letter in s is Latin
func isLatin(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}
