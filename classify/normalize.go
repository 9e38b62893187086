package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Decorative character ranges commonly used to dress up role names.
// These carry no lexical meaning and are removed before matching.
var decorative = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2190, Hi: 0x21FF, Stride: 1}, // arrows
		{Lo: 0x2500, Hi: 0x257F, Stride: 1}, // box drawing
		{Lo: 0x2580, Hi: 0x259F, Stride: 1}, // block elements
		{Lo: 0x25A0, Hi: 0x25FF, Stride: 1}, // geometric shapes
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1}, // misc symbols, dingbats
		{Lo: 0x2800, Hi: 0x28FF, Stride: 1}, // braille patterns
		{Lo: 0x200B, Hi: 0x200F, Stride: 1}, // zero-width and direction marks
		{Lo: 0x2060, Hi: 0x2064, Stride: 1}, // word joiner, invisible operators
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1FAFF, Stride: 1}, // emoji planes
	},
}

// brackets are replaced with a space so adjacent words stay separated.
var brackets = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: '(', Hi: ')', Stride: 1},
		{Lo: '[', Hi: ']', Stride: 2},
		{Lo: '{', Hi: '}', Stride: 2},
		{Lo: 0x2329, Hi: 0x232A, Stride: 1}, // angle brackets
		{Lo: 0x3008, Hi: 0x3011, Stride: 1}, // CJK angle/corner/lenticular brackets
		{Lo: 0x3014, Hi: 0x301B, Stride: 1}, // tortoise shell and white brackets
	},
}

// confusables maps lookalike letters from other scripts onto the Latin
// letters they imitate. NFKD handles compatibility forms (fullwidth,
// mathematical styles); this table covers the visual-only substitutions
// that decomposition cannot reach. Curated from role names seen in the
// wild, not an exhaustive confusables database.
var confusables = map[rune]rune{
	// Cyrillic
	'а': 'a', 'в': 'b', 'с': 'c', 'е': 'e', 'є': 'e', 'ё': 'e',
	'н': 'h', 'і': 'i', 'ј': 'j', 'к': 'k', 'м': 'm', 'о': 'o',
	'р': 'p', 'ѕ': 's', 'т': 't', 'у': 'y', 'х': 'x', 'я': 'r',
	'А': 'a', 'В': 'b', 'С': 'c', 'Е': 'e', 'Є': 'e', 'К': 'k',
	'М': 'm', 'Н': 'h', 'О': 'o', 'Р': 'p', 'Ѕ': 's', 'Т': 't',
	'Х': 'x', 'Я': 'r',
	// Greek
	'α': 'a', 'β': 'b', 'ε': 'e', 'η': 'n', 'ι': 'i', 'κ': 'k',
	'ν': 'v', 'ο': 'o', 'ρ': 'p', 'τ': 't', 'υ': 'u', 'ω': 'w',
	'Α': 'a', 'Β': 'b', 'Ε': 'e', 'Η': 'h', 'Ι': 'i', 'Κ': 'k',
	'Μ': 'm', 'Ν': 'n', 'Ο': 'o', 'Ρ': 'p', 'Τ': 't', 'Υ': 'y',
	// Latin extended without a compatibility decomposition
	'ø': 'o', 'Ø': 'o', 'đ': 'd', 'Đ': 'd', 'ł': 'l', 'Ł': 'l',
	'ð': 'd', 'Ð': 'd', 'þ': 'p', 'ı': 'i',
	// Cherokee letters used as Latin stand-ins
	'Ꭺ': 'a', 'Ꭼ': 'e', 'Ꮃ': 'w', 'Ꮇ': 'm', 'Ꮋ': 'h', 'Ꮢ': 'r',
	'Ꮪ': 's', 'Ꮯ': 'c', 'Ꮲ': 'p', 'Ꮶ': 'k', 'Ꮓ': 'z', 'Ꮩ': 'v',
}

// stripper runs NFKD decomposition, drops combining marks and decorative
// characters, and turns brackets into spaces.
var stripper = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.In(decorative)),
	runes.Map(func(r rune) rune {
		if unicode.Is(brackets, r) {
			return ' '
		}
		return r
	}),
)

// Normalize converts a decorated role name into a plain, lowercased,
// space-collapsed form suitable for keyword matching. Digits, '+' and '-'
// survive so age-range names like "18+" stay intact.
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	stripped, _, err := transform.String(stripper, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	b.Grow(len(stripped))

	for _, r := range stripped {
		if folded, ok := confusables[r]; ok {
			r = folded
		}

		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == '+' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
