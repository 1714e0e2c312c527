package rag

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer turns text into token ids and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

var (
	defaultTokenizer    Tokenizer
	defaultTokenizerErr error
	tokenizerOnce       sync.Once
)

// DefaultTokenizer returns the shared cl100k_base tokenizer.
func DefaultTokenizer() (Tokenizer, error) {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			defaultTokenizerErr = fmt.Errorf("load tiktoken encoding: %w", err)
			return
		}
		defaultTokenizer = tiktokenTokenizer{enc: enc}
	})
	return defaultTokenizer, defaultTokenizerErr
}

// TokenCounter adapts a tokenizer into a plain counting func.
func TokenCounter(tok Tokenizer) func(string) int {
	return func(text string) int {
		if text == "" {
			return 0
		}
		return len(tok.Encode(text))
	}
}

type Chunk struct {
	Text      string
	TokenSize int
	Index     int
}

type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkerConfig fits 512-token embedding models with room for a prefix.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     400,
		OverlapTokens: 50,
	}
}

// Chunker packs sentences into token-bounded chunks. Consecutive chunks
// share up to OverlapTokens worth of trailing sentences.
type Chunker struct {
	tok   Tokenizer
	cfg   ChunkerConfig
	count func(string) int
}

func NewChunker(tok Tokenizer, cfg ChunkerConfig) *Chunker {
	if cfg.MaxTokens <= 0 {
		cfg = DefaultChunkerConfig()
	}
	return &Chunker{tok: tok, cfg: cfg, count: TokenCounter(tok)}
}

func (c *Chunker) Chunk(text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var (
		chunks []Chunk
		buf    strings.Builder
		tokens int
	)

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      strings.TrimSpace(buf.String()),
			TokenSize: tokens,
			Index:     len(chunks),
		})
		buf.Reset()
		tokens = 0
	}

	for i, sentence := range sentences {
		n := c.count(sentence)

		// A sentence that cannot fit anywhere is sliced by tokens.
		if n > c.cfg.MaxTokens {
			flush()
			for _, part := range c.sliceTokens(sentence) {
				chunks = append(chunks, Chunk{
					Text:      part.Text,
					TokenSize: part.TokenSize,
					Index:     len(chunks),
				})
			}
			continue
		}

		if tokens+n > c.cfg.MaxTokens && buf.Len() > 0 {
			flush()

			overlap := c.overlap(sentences, i)
			if overlapTokens := c.count(overlap); overlap != "" && overlapTokens+n <= c.cfg.MaxTokens {
				buf.WriteString(overlap)
				tokens = overlapTokens
			}
		}

		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(sentence)
		tokens += n
	}
	flush()

	return chunks
}

func (c *Chunker) sliceTokens(text string) []Chunk {
	ids := c.tok.Encode(text)

	var parts []Chunk
	for i := 0; i < len(ids); i += c.cfg.MaxTokens {
		end := min(i+c.cfg.MaxTokens, len(ids))
		part := strings.TrimSpace(c.tok.Decode(ids[i:end]))
		if part == "" {
			continue
		}
		parts = append(parts, Chunk{Text: part, TokenSize: end - i})
	}
	return parts
}

// overlap collects whole sentences preceding idx until the overlap budget is met.
func (c *Chunker) overlap(sentences []string, idx int) string {
	if idx == 0 || c.cfg.OverlapTokens <= 0 {
		return ""
	}

	var picked []string
	tokens := 0
	for i := idx - 1; i >= 0 && tokens < c.cfg.OverlapTokens; i-- {
		picked = append([]string{sentences[i]}, picked...)
		tokens += c.count(sentences[i])
	}
	return strings.Join(picked, " ")
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '．': true, '…': true,
}

func splitSentences(text string) []string {
	var sentences []string

	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)

		for i, r := range runes {
			current.WriteRune(r)
			if !sentenceEnders[r] {
				continue
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

// splitParagraphs unwraps soft line breaks inside blank-line separated paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
