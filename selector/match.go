// Package selector decides whether a flattened selector reported by browser
// may refer to a (possibly nested) rule in the source.
package selector

import (
	"slices"
	"strings"

	"cssfire/css"
)

// Path is a selector list split into comma separated alternatives, each
// alternative split into whitespace separated tokens. Path values are never
// shared between match attempts.
type Path [][]string

// Parse normalizes selector list and splits it into alternatives.
func Parse(selector string) Path {
	var p Path
	for alt := range strings.SplitSeq(css.Normalize(selector), ",") {
		if tokens := strings.Fields(alt); len(tokens) > 0 {
			p = append(p, tokens)
		}
	}
	return p
}

// String joins path back into normalized selector list.
func (p Path) String() string {
	alts := make([]string, len(p))
	for i, alt := range p {
		alts[i] = strings.Join(alt, " ")
	}
	return strings.Join(alts, ",")
}

// SearchWord returns a word which the selector of any rule matching target
// must contain. It is taken from the last token of the first alternative, so
// "&:hover" rules are still found for "a:hover". Empty result means no such
// word exists (e.g. "*") and every rule has to be checked.
func SearchWord(target string) string {
	p := Parse(target)
	if len(p) == 0 {
		return ""
	}
	words := css.Words(p[0][len(p[0])-1])
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

// Match reports whether rule (a ruleset node) together with all of its
// enclosing rulesets may be the origin of target selector. Every level of
// nesting must consume every alternative of the target, and nothing may be
// left over when the file level is reached.
func Match(target string, rule *css.Node) bool {
	if rule == nil || rule.Kind != css.KindRuleset {
		return false
	}
	targets := Parse(target)
	if len(targets) == 0 {
		return false
	}

	for n := rule; n != nil; n = n.Parent {
		if n.Kind != css.KindRuleset {
			// media, at-rules and mixin bodies do not take part in selector
			continue
		}
		compares := Parse(n.Text)
		if len(compares) == 0 {
			return false
		}
		if !consume(targets, compares) {
			return false
		}
	}

	for _, t := range targets {
		if len(t) != 0 {
			return false
		}
	}
	return true
}

// consume removes trailing tokens matched by one nesting level from target
// alternatives in place. Level succeeds only when each compare alternative
// consumed at least one target alternative and each target alternative was
// consumed.
func consume(targets, compares Path) bool {
	consumed := make([]bool, len(targets))
	for _, cmp := range compares {
		hit := false
		for i, tgt := range targets {
			if consumed[i] {
				continue
			}
			if rest, ok := trimSuffix(tgt, cmp); ok {
				targets[i] = rest
				consumed[i] = true
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	for _, c := range consumed {
		if !c {
			return false
		}
	}
	return true
}

// trimSuffix matches compare tokens against the tail of target tokens going
// backwards and returns the remaining head. Compare token "&:x" matches
// target token "p:x" leaving "p" to be matched by the next compare token or
// the next level. Target slice is never modified.
func trimSuffix(target, compare []string) ([]string, bool) {
	ti := len(target) - 1
	cur, rewritten := "", false

	for ci := len(compare) - 1; ci >= 0; ci-- {
		if ti < 0 {
			return nil, false
		}
		tok := target[ti]
		if rewritten {
			tok = cur
		}

		c := compare[ci]
		if c == tok {
			ti--
			rewritten = false
			continue
		}
		if strings.HasPrefix(c, "&:") {
			if i := strings.IndexByte(tok, ':'); i >= 0 && c[1:] == tok[i:] {
				if prefix := tok[:i]; prefix != "" {
					cur, rewritten = prefix, true
				} else {
					ti--
					rewritten = false
				}
				continue
			}
		}
		return nil, false
	}

	if !rewritten {
		return slices.Clip(target[:ti+1]), true
	}
	rest := make([]string, ti+1)
	copy(rest, target[:ti])
	rest[ti] = cur
	return rest, true
}
