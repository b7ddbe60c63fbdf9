package css

import (
	"bytes"
	"errors"
	"io"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type token struct {
	tt    css.TokenType
	text  string
	start int
}

func (t token) end() int {
	return t.start + len(t.text)
}

func (t token) trivia() bool {
	switch t.tt {
	case css.WhitespaceToken, css.CommentToken, css.CDOToken, css.CDCToken:
		return true
	}
	return false
}

func (t token) is(tt css.TokenType, text string) bool {
	return t.tt == tt && t.text == text
}

// tokenize splits source into tokens covering it completely. When
// lineComments is set "//" comments are recognized and reported as
// CommentToken, lexer is restarted right after them so quotes inside
// comments do not leak into the following text.
func tokenize(data []byte, lineComments bool) ([]token, error) {
	var toks []token

	base := 0
	for base < len(data) {
		l := css.NewLexer(parse.NewInput(bytes.NewReader(data[base:])))
		pos, restart := base, false
		for {
			tt, raw := l.Next()
			if tt == css.ErrorToken {
				if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
					// keep the rest as a single broken token
					toks = append(toks, token{tt: css.ErrorToken, text: string(data[pos:]), start: pos})
					return toks, err
				}
				break
			}
			t := token{tt: tt, text: string(raw), start: pos}
			pos += len(raw)
			if lineComments && t.is(css.DelimToken, "/") && pos < len(data) && data[pos] == '/' {
				eol := bytes.IndexByte(data[t.start:], '\n')
				if eol < 0 {
					eol = len(data)
				} else {
					eol += t.start
				}
				toks = append(toks, token{tt: css.CommentToken, text: string(data[t.start:eol]), start: t.start})
				base, restart = eol, true
				break
			}
			toks = append(toks, t)
		}
		if !restart {
			break
		}
	}
	return toks, nil
}
