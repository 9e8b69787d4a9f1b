package engine

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"zapbot/internal/config"
)

// Match is the outcome of a successful trigger evaluation: the winning rule
// and the response already chosen from its candidates.
type Match struct {
	Rule     config.Rule
	Response string
}

// Matcher evaluates a message body against the configured rules. It is pure
// apart from logging malformed regex sub-terms, which are treated as
// non-matching instead of failing the whole evaluation.
type Matcher struct {
	log zerolog.Logger
}

func NewMatcher(log zerolog.Logger) *Matcher {
	return &Matcher{log: log}
}

// Match walks the rules in configured order and returns the first whose
// trigger logic succeeds. No scoring, no best-match heuristics: first match
// wins, and scanning stops there.
func (m *Matcher) Match(body string, cfg config.Config) (Match, bool) {
	s := cfg.Settings

	norm := body
	if !s.CaseSensitive {
		norm = strings.ToLower(body)
	}

	for _, rule := range cfg.AutoReplies {
		for _, group := range rule.Triggers {
			if len(group) == 0 {
				continue
			}
			if m.groupMatches(body, norm, group, rule, s) {
				return Match{Rule: rule, Response: chooseResponse(rule.Responses)}, true
			}
		}
	}
	return Match{}, false
}

// groupMatches requires every sub-term of the group to match, short-circuiting
// on the first failure. Plain rules carry single-term groups, so this reduces
// to one containment test.
func (m *Matcher) groupMatches(raw, norm string, group config.TriggerGroup, rule config.Rule, s config.Settings) bool {
	for _, term := range group {
		if !m.termMatches(raw, norm, term, rule, s) {
			return false
		}
	}
	return true
}

func (m *Matcher) termMatches(raw, norm, term string, rule config.Rule, s config.Settings) bool {
	// Conjunctive sub-terms that carry a backslash are compiled as regexes
	// against the raw body, so the pattern keeps its own case semantics.
	if rule.RequireAll && rule.IsRegex && strings.Contains(term, `\`) {
		pat := term
		if !s.CaseSensitive {
			pat = "(?i)" + pat
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			m.log.Warn().Err(err).Str("pattern", term).Msg("invalid trigger regex, sub-term skipped")
			return false
		}
		return re.MatchString(raw)
	}

	t := term
	if !s.CaseSensitive {
		t = strings.ToLower(term)
	}

	if s.WholeWord {
		// RE2's \b knows only ASCII word characters, which would make
		// accented triggers like "olá" unmatchable as whole words, so the
		// boundaries are spelled out with Unicode classes.
		pat := `(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(t) + `(?:$|[^\p{L}\p{N}_])`
		if !s.CaseSensitive {
			pat = "(?i)" + pat
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			m.log.Warn().Err(err).Str("term", term).Msg("whole-word pattern failed to compile")
			return false
		}
		return re.MatchString(norm)
	}

	return strings.Contains(norm, t)
}

// chooseResponse picks uniformly among the rule's candidate replies.
func chooseResponse(responses []string) string {
	switch len(responses) {
	case 0:
		return ""
	case 1:
		return responses[0]
	default:
		return responses[rand.Intn(len(responses))]
	}
}
