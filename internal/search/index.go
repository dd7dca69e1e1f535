// Package search provides a small, deterministic, concurrency-safe
// in-memory index over short documents (doctor profiles in the directory).
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware, accent-insensitive tokenization with optional stop words
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic scoring and stable order for ties
//
// A query token matches a document token when they are equal, or when the
// query token has at least minPrefixRunes runes and prefixes the document
// token ("cardio" matches "cardiologue"). Score is the fraction of query
// tokens matched; Jaccard similarity breaks ties in favour of tighter docs.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const minPrefixRunes = 3

// Document is one searchable item.
type Document struct {
	ID   string
	Text string
}

// Result is a ranked document id with its score in (0, 1].
type Result struct {
	ID    string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	maxDocs   int
	minScore  float64
}

func defaultConfig() config {
	return config{}
}

// WithStopwords drops the given words (accent-insensitive) from documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = Fold(w)
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed documents.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithMinScore drops results scoring below s.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s >= 0 && s <= 1 {
			c.minScore = s
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	tokens map[string]struct{}
	runes  int
}

type index struct {
	cfg  config
	docs []doc
}

// New builds an Index over docs. Documents without tokens are skipped.
func New(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		toks := tokenize(d.Text, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{id: d.ID, tokens: toks, runes: utf8.RuneCountInString(d.Text)})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

// Len reports the number of indexed documents.
func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best matches. k <= 0 means no limit.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		id      string
		score   float64
		jaccard float64
		runes   int
	}
	buf := make([]scored, 0, len(i.docs))
	for _, d := range i.docs {
		over := matched(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		score := float64(over) / float64(qLen)
		if score < i.cfg.minScore {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		buf = append(buf, scored{id: d.id, score: score, jaccard: float64(over) / union, runes: d.runes})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].jaccard != buf[b].jaccard {
			return buf[a].jaccard > buf[b].jaccard
		}
		if buf[a].runes != buf[b].runes {
			return buf[a].runes < buf[b].runes
		}
		return buf[a].id < buf[b].id
	})

	if k <= 0 || k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for j := 0; j < k; j++ {
		out[j] = Result{ID: buf[j].id, Score: buf[j].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(Fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

// matched counts query tokens found in the document, exactly or by prefix.
func matched(q, d map[string]struct{}) int {
	n := 0
	for qt := range q {
		if _, ok := d[qt]; ok {
			n++
			continue
		}
		if utf8.RuneCountInString(qt) < minPrefixRunes {
			continue
		}
		for dt := range d {
			if strings.HasPrefix(dt, qt) {
				n++
				break
			}
		}
	}
	return n
}
