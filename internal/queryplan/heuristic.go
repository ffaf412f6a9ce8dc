package queryplan

import "unicode"

// HeuristicDetect is the deterministic fallback used when no
// LanguageDetector is configured, the detector errors, or its best
// candidate's confidence is below the configured floor. It classifies by
// Unicode script range rather than statistical modeling, so it is always
// available and never fails.
func HeuristicDetect(text string) string {
	var han, kana, hangul, cyrillic, latin, total int
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}

	if total == 0 {
		return CanonicalQueryLanguage
	}

	switch {
	case kana > 0:
		return "ja"
	case hangul > total/2:
		return "ko"
	case han > total/2:
		return "zh"
	case cyrillic > total/2:
		return "ru"
	case latin > total/2:
		return CanonicalQueryLanguage
	default:
		return CanonicalQueryLanguage
	}
}
