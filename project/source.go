package project

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sourceEncoding remembers how the file was stored on disk so modified text
// could be written back the same way.
type sourceEncoding struct {
	name string
	bom  []byte
	enc  encoding.Encoding
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// decodeSource converts raw file content to UTF-8. Byte order mark wins
// over @charset rule, unknown charsets are treated as UTF-8.
func decodeSource(raw []byte) ([]byte, sourceEncoding, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return raw[len(bomUTF8):], sourceEncoding{name: "utf-8", bom: bomUTF8}, nil
	case bytes.HasPrefix(raw, bomUTF16BE), bytes.HasPrefix(raw, bomUTF16LE):
		text, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
		if err != nil {
			return nil, sourceEncoding{}, fmt.Errorf("unable to decode utf-16 source: %w", err)
		}
		order := unicode.LittleEndian
		if bytes.HasPrefix(raw, bomUTF16BE) {
			order = unicode.BigEndian
		}
		return text, sourceEncoding{name: "utf-16", enc: unicode.UTF16(order, unicode.UseBOM)}, nil
	}

	label := declaredCharset(raw)
	if label == "" {
		return raw, sourceEncoding{name: "utf-8"}, nil
	}
	// plain encoding, characters missing in the code page fail encoding
	enc, err := htmlindex.Get(label)
	if err != nil {
		return raw, sourceEncoding{name: "utf-8"}, nil
	}
	name, err := htmlindex.Name(enc)
	if err != nil || name == "utf-8" {
		return raw, sourceEncoding{name: "utf-8"}, nil
	}
	r, err := charset.NewReaderLabel(label, bytes.NewReader(raw))
	if err != nil {
		return nil, sourceEncoding{}, fmt.Errorf("unable to decode %s source: %w", name, err)
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, sourceEncoding{}, fmt.Errorf("unable to decode %s source: %w", name, err)
	}
	return text, sourceEncoding{name: name, enc: enc}, nil
}

// declaredCharset returns label of the @charset rule opening the source or
// empty string.
func declaredCharset(raw []byte) string {
	l := css.NewLexer(parse.NewInput(bytes.NewReader(raw)))
	next := func() (css.TokenType, []byte) {
		for {
			tt, data := l.Next()
			if tt != css.WhitespaceToken {
				return tt, data
			}
		}
	}
	if tt, data := l.Next(); tt != css.AtKeywordToken || !strings.EqualFold(string(data), "@charset") {
		return ""
	}
	tt, label := next()
	if tt != css.StringToken || len(label) < 2 {
		return ""
	}
	if tt, _ := next(); tt != css.SemicolonToken {
		return ""
	}
	return strings.ToLower(string(label[1 : len(label)-1]))
}

// encode converts UTF-8 text back to the original representation.
func (e sourceEncoding) encode(text []byte) ([]byte, error) {
	if e.enc != nil {
		out, err := e.enc.NewEncoder().Bytes(text)
		if err != nil {
			return nil, fmt.Errorf("unable to encode source as %s: %w", e.name, err)
		}
		return out, nil
	}
	if len(e.bom) > 0 {
		return append(append(make([]byte, 0, len(e.bom)+len(text)), e.bom...), text...), nil
	}
	return text, nil
}
