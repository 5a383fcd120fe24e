// Package assessment turns a model's free-form reply into a FraudAssessment.
package assessment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"fnolguard/internal/domain"
)

// DefaultPreviewChars is the preview length used when none is configured.
const DefaultPreviewChars = 500

var (
	scoreMarker     = regexp.MustCompile(`(?:fraud\s+confidence\s+score|fraud\s+score|confidence\s+score)\s*(?:\([^)]*\))?\s*[:\-–—]\s*(.*)$`)
	rationaleMarker = regexp.MustCompile(`\brationale\b[^:]{0,40}:|^\s*rationale(?:\s+for(?:\s+the)?\s+score)?\s*$`)
	numberedBullet  = regexp.MustCompile(`^\d{1,3}[.)]\s+`)
	emphasis        = strings.NewReplacer("*", "", "_", "", "#", "", "`", "")
)

var bulletGlyphs = []string{"-", "*", "•", "‣", "◦", "▪", "–", "—", "+"}

type rationaleState int

const (
	rationaleNone rationaleState = iota
	rationaleAwaiting
	rationaleCollecting
	rationaleDone
)

// Parse never fails. Unrecognised replies yield an Unknown score and an empty
// rationale; the preview always holds the first previewLimit runes of raw.
func Parse(raw string, previewLimit int) domain.FraudAssessment {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewChars
	}

	score := domain.FraudScoreUnknown
	scoreFound := false
	scorePending := false
	state := rationaleNone
	rationale := []string{}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		clean := strings.ToLower(strings.TrimSpace(emphasis.Replace(line)))
		scoreLine := false

		// A marker only counts once a recognised category follows it.
		if scorePending && clean != "" {
			scorePending = false
			if s := matchScore(clean); s != domain.FraudScoreUnknown {
				score, scoreFound, scoreLine = s, true, true
			}
		}
		if !scoreFound && !scoreLine {
			if m := scoreMarker.FindStringSubmatch(clean); m != nil {
				rest := strings.TrimSpace(m[1])
				if rest == "" {
					scorePending, scoreLine = true, true
				} else if s := matchScore(rest); s != domain.FraudScoreUnknown {
					score, scoreFound, scoreLine = s, true, true
				}
			}
		}

		// Score lines are skipped unless they are bullets of an open rationale block.
		if scoreLine {
			if state != rationaleAwaiting && state != rationaleCollecting {
				continue
			}
			if _, ok := bulletText(strings.TrimSpace(line)); !ok {
				continue
			}
		}

		switch state {
		case rationaleNone:
			if rationaleMarker.MatchString(clean) {
				state = rationaleAwaiting
			}
		case rationaleAwaiting, rationaleCollecting:
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				if state == rationaleCollecting {
					state = rationaleDone
				}
				continue
			}
			item, ok := bulletText(trimmed)
			if !ok {
				continue
			}
			state = rationaleCollecting
			if item != "" {
				rationale = append(rationale, item)
			}
		}
	}

	return domain.FraudAssessment{
		Score:      score,
		Rationale:  rationale,
		RawPreview: preview(raw, previewLimit),
	}
}

// matchScore maps the text after a score marker to a category. The category
// word must not run on into further letters, so "highly" is not "high".
func matchScore(s string) domain.FraudScore {
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, c := range scoreTokens {
		rest, ok := strings.CutPrefix(s, c.token)
		if !ok {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(rest); rest == "" || !unicode.IsLetter(r) {
			return c.score
		}
	}
	return domain.FraudScoreUnknown
}

var scoreTokens = []struct {
	token string
	score domain.FraudScore
}{
	{"very high", domain.FraudScoreVeryHigh},
	{"very-high", domain.FraudScoreVeryHigh},
	{"veryhigh", domain.FraudScoreVeryHigh},
	{"high", domain.FraudScoreHigh},
	{"medium", domain.FraudScoreMedium},
	{"low", domain.FraudScoreLow},
}

// bulletText reports whether line is a bullet and returns its text with the
// glyph and surrounding whitespace removed.
func bulletText(line string) (string, bool) {
	if loc := numberedBullet.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:]), true
	}
	for _, g := range bulletGlyphs {
		rest, ok := strings.CutPrefix(line, g)
		if !ok {
			continue
		}
		if rest == "" {
			return "", true
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if unicode.IsSpace(r) {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

func preview(raw string, limit int) string {
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	n := 0
	for i := range raw {
		if n == limit {
			return raw[:i]
		}
		n++
	}
	return raw
}
