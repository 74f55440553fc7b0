package scoring

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// symbolPOS is the IPA dictionary part of speech for punctuation and symbols.
const symbolPOS = "記号"

// KagomeTokenizer segments Japanese text, which has no spaces between words,
// into morpheme surface forms.
type KagomeTokenizer struct {
	t *tokenizer.Tokenizer
}

// NewKagomeTokenizer loads the IPA dictionary. This takes a moment; build one
// and share it.
func NewKagomeTokenizer() (*KagomeTokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KagomeTokenizer{t: t}, nil
}

// Tokens implements Tokenizer. Whitespace and symbol morphemes are dropped and
// the remaining surfaces are normalized like Words does.
func (k *KagomeTokenizer) Tokens(text string) []string {
	var out []string
	for _, token := range k.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}
		if features := token.Features(); len(features) > 0 && features[0] == symbolPOS {
			continue
		}
		// Unknown words can still carry punctuation.
		out = append(out, strings.Fields(normalize(token.Surface))...)
	}
	return out
}
