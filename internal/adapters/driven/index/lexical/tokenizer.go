package lexical

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer turns mixed-script text into index terms.
//
// Text is NFKC-normalised and case-folded. Runs of Han, Hiragana, Katakana
// or Hangul become overlapping character bigrams (a one-rune run becomes a
// unigram). Other letters and digits form whole-word terms. Punctuation and
// whitespace separate terms. The output is deterministic for a given input.
type Tokenizer struct {
	stopwords map[string]struct{}
	// particles split CJK runs and never appear in a bigram.
	particles map[rune]struct{}
}

// NewTokenizer creates a tokenizer with the built-in stopword lists.
func NewTokenizer() *Tokenizer {
	t := &Tokenizer{
		stopwords: make(map[string]struct{}, len(englishStopwords)+len(chineseStopwords)),
		particles: make(map[rune]struct{}, len(chineseParticles)),
	}
	for _, w := range englishStopwords {
		t.stopwords[w] = struct{}{}
	}
	for _, w := range chineseStopwords {
		t.stopwords[w] = struct{}{}
	}
	for _, r := range chineseParticles {
		t.particles[r] = struct{}{}
	}
	return t
}

// Tokens returns the terms of text in order of appearance, duplicates kept.
func (t *Tokenizer) Tokens(text string) []string {
	if text == "" {
		return nil
	}
	// Casers carry state, so each call gets its own.
	text = cases.Fold().String(norm.NFKC.String(text))

	var (
		tokens []string
		word   []rune
		cjk    []rune
	)

	flushWord := func() {
		if len(word) > 0 {
			t.emit(&tokens, string(word))
			word = word[:0]
		}
	}
	flushCJK := func() {
		switch len(cjk) {
		case 0:
			return
		case 1:
			t.emit(&tokens, string(cjk))
		default:
			for i := 0; i+1 < len(cjk); i++ {
				t.emit(&tokens, string(cjk[i:i+2]))
			}
		}
		cjk = cjk[:0]
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flushWord()
			if _, ok := t.particles[r]; ok {
				flushCJK()
				continue
			}
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()

	return tokens
}

// Frequencies returns term counts and the token total for text.
func (t *Tokenizer) Frequencies(text string) (map[string]int, int) {
	tokens := t.Tokens(text)
	if len(tokens) == 0 {
		return nil, 0
	}
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf, len(tokens)
}

func (t *Tokenizer) emit(tokens *[]string, tok string) {
	if _, stop := t.stopwords[tok]; stop {
		return
	}
	*tokens = append(*tokens, tok)
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

var englishStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "how",
	"in", "is", "it", "of", "on", "or", "that", "the", "this", "to", "was",
	"what", "when", "where", "which", "who", "why", "with",
}

var chineseStopwords = []string{
	"的", "是", "在", "了", "和", "与", "及", "或", "等", "个", "为", "有",
	"以", "将", "从", "把", "被", "让", "向", "到", "由", "给", "对", "而",
	"着", "之", "其", "中",
	"什么", "怎么", "如何", "哪些", "哪个",
}

var chineseParticles = []rune{'的', '了', '和', '与', '及', '或', '着', '之', '把', '被'}
