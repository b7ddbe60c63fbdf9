package css

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"cssfire/common"
)

// Parser builds structural index of stylesheets.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new stylesheet parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse builds structural index of the source. Parsing never fails: invalid
// constructs are kept in the tree and marked broken.
func (p *Parser) Parse(path string, dialect common.Dialect, data []byte) *Stylesheet {
	sheet := &Stylesheet{
		Path:    path,
		Dialect: dialect,
		Source:  data,
		keys:    make(map[string]*Node),
	}
	sheet.Root = &Node{Kind: KindStylesheet, Sheet: sheet, End: len(data), BodyEnd: len(data)}

	toks, err := tokenize(data, dialect.LineComments())
	if err != nil {
		p.log.Debug("Tokenizer stopped early", zap.String("source", path), zap.Error(err))
	}

	st := &state{toks: toks, src: data, sheet: sheet, dialect: dialect}
	st.body(sheet.Root, false)

	finish(sheet, sheet.Root, "")
	p.log.Debug("Parsed stylesheet",
		zap.String("source", path),
		zap.Stringer("dialect", dialect),
		zap.Int("bytes", len(data)),
		zap.Int("tokens", len(toks)),
		zap.Bool("errors", sheet.Root.errs))
	return sheet
}

// finish assigns keys and propagates error marks bottom up.
func finish(sheet *Stylesheet, n *Node, key string) {
	n.Key = key
	sheet.keys[key] = n
	n.errs = n.Broken

	seen := make(map[string]int)
	for _, c := range n.Children {
		seg := segment(c)
		idx := seen[seg]
		seen[seg] = idx + 1
		finish(sheet, c, key+"/"+seg+"#"+strconv.Itoa(idx))
		if c.errs {
			n.errs = true
		}
	}
}

func segment(n *Node) string {
	switch n.Kind {
	case KindRuleset:
		return Normalize(n.Text)
	case KindBlock:
		return "{}"
	case KindDeclaration:
		return strings.ToLower(n.Name)
	case KindMedia:
		return "@media " + Normalize(n.Text)
	case KindAtRule:
		return n.Name + " " + Normalize(n.Text)
	case KindImport:
		return "@import " + n.Text
	case KindMixin:
		return "@mixin " + n.Name
	case KindInclude:
		return "@include " + n.Name
	case KindVariable:
		return n.Name
	default:
		return "!" + n.Kind.String()
	}
}

type state struct {
	toks    []token
	pos     int
	src     []byte
	sheet   *Stylesheet
	dialect common.Dialect
}

func (s *state) eof() bool {
	return s.pos >= len(s.toks)
}

func (s *state) peek() token {
	if s.eof() {
		return token{tt: css.ErrorToken, start: len(s.src)}
	}
	return s.toks[s.pos]
}

// peekSignificant returns first non trivia token at or after i.
func (s *state) peekSignificant(i int) (token, int) {
	for ; i < len(s.toks); i++ {
		if !s.toks[i].trivia() {
			return s.toks[i], i
		}
	}
	return token{tt: css.ErrorToken, start: len(s.src)}, len(s.toks)
}

func (s *state) skipTrivia() {
	for !s.eof() && s.toks[s.pos].trivia() {
		s.pos++
	}
}

func (s *state) node(kind NodeKind, parent *Node, start int) *Node {
	n := &Node{Kind: kind, Parent: parent, Sheet: s.sheet, Start: start}
	parent.Children = append(parent.Children, n)
	return n
}

// body parses statements of a braced body (nested) or of the whole file.
// It returns false when closing brace is missing.
func (s *state) body(owner *Node, nested bool) bool {
	for {
		s.skipTrivia()
		if s.eof() {
			owner.BodyEnd = len(s.src)
			return !nested
		}
		t := s.peek()
		switch t.tt {
		case css.RightBraceToken:
			s.pos++
			if nested {
				owner.BodyEnd = t.start
				return true
			}
			s.broken(owner, t.start, t.end())
		case css.SemicolonToken:
			s.pos++
		case css.ErrorToken:
			s.pos++
			s.broken(owner, t.start, t.end())
		case css.AtKeywordToken:
			s.atRule(owner)
		default:
			s.statement(owner)
		}
	}
}

func (s *state) broken(owner *Node, start, end int) *Node {
	n := s.node(KindError, owner, start)
	n.End = end
	n.Broken = true
	n.Text = string(s.src[start:end])
	return n
}

// prelude advances to the first top level ';', '{' or '}' which is left
// unconsumed. Interpolations (#{...}, @{...}) are kept inside prelude.
func (s *state) prelude() []token {
	begin, depth := s.pos, 0
	for ; !s.eof(); s.pos++ {
		t := s.toks[s.pos]
		switch t.tt {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.DelimToken:
			if (t.text == "#" || t.text == "@") && s.pos+1 < len(s.toks) && s.toks[s.pos+1].tt == css.LeftBraceToken {
				s.interpolation()
			}
		case css.LeftBraceToken:
			if depth == 0 {
				return s.toks[begin:s.pos]
			}
			depth++
		case css.RightBraceToken:
			if depth == 0 {
				return s.toks[begin:s.pos]
			}
			depth--
		case css.SemicolonToken:
			if depth == 0 {
				return s.toks[begin:s.pos]
			}
		}
	}
	return s.toks[begin:s.pos]
}

// interpolation moves position to the brace closing interpolation started at
// the current delimiter.
func (s *state) interpolation() {
	depth := 0
	for s.pos++; s.pos < len(s.toks); s.pos++ {
		switch s.toks[s.pos].tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth == 0 {
				return
			}
		}
	}
	s.pos = len(s.toks) - 1
}

// terminate consumes ';' if present and returns end of statement.
func (s *state) terminate(toks []token) int {
	end := s.peek().start
	if len(toks) > 0 {
		end = toks[len(toks)-1].end()
	}
	if t := s.peek(); !s.eof() && t.tt == css.SemicolonToken {
		s.pos++
		return t.end()
	}
	return end
}

func (s *state) statement(owner *Node) {
	start := s.peek().start

	if s.dialect == common.DialectScss {
		if t := s.peek(); t.is(css.DelimToken, "$") && s.pos+1 < len(s.toks) && s.toks[s.pos+1].tt == css.IdentToken {
			if c, _ := s.peekSignificant(s.pos + 2); c.tt == css.ColonToken {
				s.variable(owner, "$"+s.toks[s.pos+1].text, start)
				return
			}
		}
	}

	toks := s.prelude()
	if t := s.peek(); !s.eof() && t.tt == css.LeftBraceToken {
		s.pos++
		s.ruleset(owner, toks, start, t)
		return
	}
	end := s.terminate(toks)
	s.declaration(owner, toks, start, end)
}

func (s *state) ruleset(owner *Node, toks []token, start int, brace token) {
	rs := s.node(KindRuleset, owner, start)
	rs.Text = text(toks)
	if rs.Text == "" {
		rs.Broken = true
	}
	if s.dialect == common.DialectLess {
		s.params(rs, toks)
	}
	s.block(rs, brace)
}

// block parses braced body as a separate block child of owner.
func (s *state) block(owner *Node, brace token) {
	b := s.node(KindBlock, owner, brace.start)
	b.BodyStart = brace.end()
	if !s.body(b, true) {
		b.Broken = true
		b.End = len(s.src)
	} else {
		b.End = b.BodyEnd + 1
	}
	owner.End = b.End
	owner.BodyStart, owner.BodyEnd = b.BodyStart, b.BodyEnd
}

// params records parameters of a mixin definition as variables. Both
// "(@a; @b: 1)" and "($a, $b: 1)" forms are recognized.
func (s *state) params(owner *Node, toks []token) {
	open := -1
	for i, t := range toks {
		if t.tt == css.LeftParenthesisToken || t.tt == css.FunctionToken {
			open = i
			break
		}
	}
	if open < 0 {
		return
	}
	inner := toks[open+1:]
	depth := 1
	for i, t := range inner {
		switch t.tt {
		case css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken:
			depth--
		}
		if depth == 0 {
			inner = inner[:i]
			break
		}
	}
	sep := css.CommaToken
	for _, t := range inner {
		if t.tt == css.SemicolonToken {
			sep = css.SemicolonToken
			break
		}
	}
	for _, part := range split(inner, sep) {
		part = trim(part)
		if len(part) == 0 {
			continue
		}
		var (
			name  string
			start = part[0].start
		)
		switch {
		case part[0].tt == css.AtKeywordToken:
			name = part[0].text
			part = part[1:]
		case part[0].is(css.DelimToken, "$") && len(part) > 1 && part[1].tt == css.IdentToken:
			name = "$" + part[1].text
			part = part[2:]
		default:
			continue
		}
		v := s.node(KindVariable, owner, start)
		v.Name, v.Param = name, true
		v.End = start + len(name)
		v.ValueStart, v.ValueEnd = v.End, v.End
		part = trim(part)
		if len(part) > 0 && part[0].tt == css.ColonToken {
			if val := trim(part[1:]); len(val) > 0 {
				v.ValueStart, v.ValueEnd = val[0].start, val[len(val)-1].end()
				v.Text = string(s.src[v.ValueStart:v.ValueEnd])
				v.End = v.ValueEnd
			}
		}
	}
}

func (s *state) declaration(owner *Node, toks []token, start, end int) {
	toks = trim(toks)
	if len(toks) == 0 {
		return
	}

	colon := -1
	depth := 0
	for i, t := range toks {
		switch t.tt {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.ColonToken:
			if depth == 0 && colon < 0 {
				colon = i
			}
		}
	}

	if colon > 0 && property(toks[:colon]) {
		d := s.node(KindDeclaration, owner, start)
		d.End = end
		d.Name = text(toks[:colon])
		val := trim(toks[colon+1:])
		val, d.Important = important(val)
		if len(val) == 0 {
			d.Broken = true
			d.ValueStart = toks[colon].end()
			d.ValueEnd = d.ValueStart
			return
		}
		d.ValueStart, d.ValueEnd = val[0].start, val[len(val)-1].end()
		d.Text = string(s.src[d.ValueStart:d.ValueEnd])
		return
	}

	if s.dialect == common.DialectLess && (toks[0].is(css.DelimToken, ".") || toks[0].tt == css.HashToken) {
		inc := s.node(KindInclude, owner, start)
		inc.End = end
		name := toks
		for i, t := range toks {
			if t.tt == css.LeftParenthesisToken || t.tt == css.FunctionToken || t.is(css.DelimToken, "!") {
				name = toks[:i]
				if t.tt == css.FunctionToken {
					// ".mixin(" is lexed as delimiter followed by function
					inc.Name = Normalize(text(toks[:i]) + strings.TrimSuffix(t.text, "("))
				}
				break
			}
		}
		if inc.Name == "" {
			inc.Name = Normalize(text(name))
		}
		return
	}

	s.broken(owner, start, end)
}

// property reports whether tokens may form property name.
func property(toks []token) bool {
	toks = trim(toks)
	if len(toks) == 0 {
		return false
	}
	for _, t := range toks {
		switch t.tt {
		case css.IdentToken, css.CustomPropertyNameToken, css.WhitespaceToken, css.CommentToken:
		case css.DelimToken:
			// interpolation and old IE hacks
			if !strings.ContainsAny(t.text, "#@{}*_-$") {
				return false
			}
		case css.LeftBraceToken, css.RightBraceToken, css.HashToken:
		default:
			return false
		}
	}
	return true
}

// important strips trailing "!important" from value tokens.
func important(val []token) ([]token, bool) {
	n := len(val)
	if n < 2 || val[n-1].tt != css.IdentToken || !strings.EqualFold(val[n-1].text, "important") {
		return val, false
	}
	i := n - 2
	for i >= 0 && val[i].trivia() {
		i--
	}
	if i < 0 || !val[i].is(css.DelimToken, "!") {
		return val, false
	}
	return trim(val[:i]), true
}

// flags strips trailing "!default" and "!global" from variable value tokens.
func flags(val []token) []token {
	for {
		n := len(val)
		if n < 2 || val[n-1].tt != css.IdentToken {
			return val
		}
		if f := strings.ToLower(val[n-1].text); f != "default" && f != "global" {
			return val
		}
		i := n - 2
		for i >= 0 && val[i].trivia() {
			i--
		}
		if i < 0 || !val[i].is(css.DelimToken, "!") {
			return val
		}
		val = trim(val[:i])
	}
}

func (s *state) variable(owner *Node, name string, start int) {
	v := s.node(KindVariable, owner, start)
	v.Name = name

	// skip name and colon
	for !s.eof() && s.peek().tt != css.ColonToken {
		s.pos++
	}
	s.pos++
	s.skipTrivia()

	if t := s.peek(); !s.eof() && t.tt == css.LeftBraceToken {
		// detached ruleset
		s.pos++
		v.ValueStart = t.start
		s.block(v, t)
		v.ValueEnd = v.End
		v.Text = string(s.src[v.ValueStart:v.ValueEnd])
		return
	}

	val := trim(s.prelude())
	v.End = s.terminate(val)
	val = flags(val)
	if len(val) == 0 {
		v.Broken = true
		v.ValueStart, v.ValueEnd = v.End, v.End
		return
	}
	v.ValueStart, v.ValueEnd = val[0].start, val[len(val)-1].end()
	v.Text = string(s.src[v.ValueStart:v.ValueEnd])
}

func (s *state) atRule(owner *Node) {
	at := s.peek()
	start := at.start
	name := strings.ToLower(at.text)

	if s.dialect == common.DialectLess {
		if c, _ := s.peekSignificant(s.pos + 1); c.tt == css.ColonToken {
			s.variable(owner, at.text, start)
			return
		}
	}

	s.pos++
	toks := s.prelude()
	brace := !s.eof() && s.peek().tt == css.LeftBraceToken

	switch {
	case name == "@import" && !brace:
		end := s.terminate(toks)
		uris := imports(toks)
		if len(uris) == 0 {
			s.broken(owner, start, end)
			return
		}
		for _, uri := range uris {
			imp := s.node(KindImport, owner, start)
			imp.End = end
			imp.Text = uri
		}

	case name == "@media" && brace:
		m := s.node(KindMedia, owner, start)
		m.Text = text(toks)
		t := s.peek()
		s.pos++
		m.BodyStart = t.end()
		if !s.body(m, true) {
			m.Broken = true
			m.End = len(s.src)
		} else {
			m.End = m.BodyEnd + 1
		}

	case name == "@mixin" && s.dialect == common.DialectScss:
		m := s.node(KindMixin, owner, start)
		m.Name = mixinName(toks)
		if m.Name == "" {
			m.Broken = true
		}
		s.params(m, toks)
		if !brace {
			m.End = s.terminate(toks)
			m.Broken = true
			return
		}
		t := s.peek()
		s.pos++
		s.block(m, t)

	case name == "@include" && s.dialect == common.DialectScss:
		inc := s.node(KindInclude, owner, start)
		inc.Name = mixinName(toks)
		if !brace {
			inc.End = s.terminate(toks)
			return
		}
		t := s.peek()
		s.pos++
		s.block(inc, t)

	default:
		a := s.node(KindAtRule, owner, start)
		a.Name = name
		a.Text = text(toks)
		if !brace {
			a.End = s.terminate(toks)
			return
		}
		t := s.peek()
		s.pos++
		a.BodyStart = t.end()
		if !s.body(a, true) {
			a.Broken = true
			a.End = len(s.src)
		} else {
			a.End = a.BodyEnd + 1
		}
	}
}

// mixinName extracts name from "@mixin name(...)" or "@include name(...)"
// prelude.
func mixinName(toks []token) string {
	for _, t := range trim(toks) {
		switch t.tt {
		case css.IdentToken:
			return t.text
		case css.FunctionToken:
			return strings.TrimSuffix(t.text, "(")
		default:
			return ""
		}
	}
	return ""
}

// imports extracts URIs from @import prelude. Multiple comma separated URIs
// are allowed, media queries are ignored.
func imports(toks []token) []string {
	var uris []string
	for _, t := range toks {
		switch t.tt {
		case css.StringToken:
			uris = append(uris, unquote(t.text))
		case css.URLToken:
			s := strings.TrimSuffix(t.text, ")")
			if i := strings.IndexByte(s, '('); i >= 0 {
				s = s[i+1:]
			}
			uris = append(uris, unquote(strings.TrimSpace(s)))
		}
	}
	return uris
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// text concatenates tokens replacing comments with spaces and trims result.
func text(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		if t.tt == css.CommentToken {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(t.text)
	}
	return strings.TrimSpace(b.String())
}

func trim(toks []token) []token {
	for len(toks) > 0 && toks[0].trivia() {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].trivia() {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func split(toks []token, sep css.TokenType) [][]token {
	var (
		parts [][]token
		begin int
		depth int
	)
	for i, t := range toks {
		switch t.tt {
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, toks[begin:i])
				begin = i + 1
			}
		}
	}
	return append(parts, toks[begin:])
}

// String returns short description of the node for logs.
func (n *Node) String() string {
	switch n.Kind {
	case KindRuleset, KindMedia, KindImport:
		return fmt.Sprintf("%s %q", n.Kind, Normalize(n.Text))
	case KindDeclaration, KindVariable:
		return fmt.Sprintf("%s %s: %s", n.Kind, n.Name, n.Text)
	case KindMixin, KindInclude, KindAtRule:
		return fmt.Sprintf("%s %s", n.Kind, n.Name)
	}
	return n.Kind.String()
}
