package incoming

import (
	"sync"

	"cssfire/css"
	"cssfire/project"
	"cssfire/selector"
)

// SearchCache remembers selector and media lookups made against a project
// snapshot. Any new snapshot generation drops everything, there is no
// partial invalidation.
type SearchCache struct {
	mu    sync.Mutex
	gen   uint64
	rules map[string][]*css.Node
	media map[string][]*css.Node
}

func NewSearchCache() *SearchCache {
	return &SearchCache{
		rules: make(map[string][]*css.Node),
		media: make(map[string][]*css.Node),
	}
}

// Clear drops all cached lookups.
func (c *SearchCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

func (c *SearchCache) clear() {
	clear(c.rules)
	clear(c.media)
}

// Len returns number of cached lookups.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rules) + len(c.media)
}

// sync must be called with mu held.
func (c *SearchCache) sync(snap *project.Snapshot) {
	if c.gen != snap.Generation() {
		c.clear()
		c.gen = snap.Generation()
	}
}

// Rules returns rulesets without structural errors which may be the origin
// of the selector.
func (c *SearchCache) Rules(snap *project.Snapshot, sel string) []*css.Node {
	key := css.Normalize(sel)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(snap)
	if rules, ok := c.rules[key]; ok {
		return rules
	}

	var rules []*css.Node
	for _, n := range snap.Search(selector.SearchWord(key), css.KindRuleset) {
		if !n.HasErrors() && selector.Match(key, n) {
			rules = append(rules, n)
		}
	}
	c.rules[key] = rules
	return rules
}

// Media returns @media rules with the same (normalized) query.
func (c *SearchCache) Media(snap *project.Snapshot, query string) []*css.Node {
	key := css.Normalize(query)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(snap)
	if media, ok := c.media[key]; ok {
		return media
	}

	var word string
	if words := css.Words(key); len(words) > 0 {
		word = words[0]
	}
	var media []*css.Node
	for _, n := range snap.Search(word, css.KindMedia) {
		if !n.Broken && css.Normalize(n.Text) == key {
			media = append(media, n)
		}
	}
	c.media[key] = media
	return media
}
