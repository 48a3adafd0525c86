// Package bm25 maintains an in-memory inverted index and scores documents
// against a query using Okapi BM25.
package bm25

import (
	"math"
	"sort"
	"sync"

	"github.com/rcliao/rag-mcp/internal/tokenize"
)

// DefaultK1 and DefaultB are the BM25 term-frequency saturation and length
// normalization parameters from spec §4.2.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type document struct {
	termFreq map[string]int
	length   int
}

// Index is a per-scope inverted index. Callers are responsible for keeping
// one Index instance per scope; searches never cross Index boundaries.
type Index struct {
	mu       sync.Mutex
	k1, b    float64
	docs     map[string]document
	docFreq  map[string]int
	lenTotal int
}

// New returns an empty index using the given BM25 parameters. Zero values
// fall back to the spec defaults.
func New(k1, b float64) *Index {
	if k1 == 0 {
		k1 = DefaultK1
	}
	if b == 0 {
		b = DefaultB
	}
	return &Index{
		k1:      k1,
		b:       b,
		docs:    make(map[string]document),
		docFreq: make(map[string]int),
	}
}

// Add tokenizes content and folds it into the index under docID. Calling
// Add twice with the same docID first removes the previous entry, so the
// operation is idempotent with respect to the final index state.
func (idx *Index) Add(docID, content string) {
	tokens := tokenize.Tokens(content)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(docID)

	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	for t := range tf {
		idx.docFreq[t]++
	}
	idx.docs[docID] = document{termFreq: tf, length: len(tokens)}
	idx.lenTotal += len(tokens)
}

// Remove drops docID from the index. Unknown ids are a no-op.
func (idx *Index) Remove(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(docID)
}

func (idx *Index) removeLocked(docID string) {
	d, ok := idx.docs[docID]
	if !ok {
		return
	}
	for t := range d.termFreq {
		idx.docFreq[t]--
		if idx.docFreq[t] <= 0 {
			delete(idx.docFreq, t)
		}
	}
	idx.lenTotal -= d.length
	delete(idx.docs, docID)
}

// Result is one ranked hit from Search.
type Result struct {
	DocID string
	Score float64
}

// Search tokenizes and deduplicates the query, scores every candidate
// document sharing at least one query term, and returns at most k results
// sorted by descending score with ascending doc_id as a tiebreak.
func (idx *Index) Search(query string, k int) []Result {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if k <= 0 || len(idx.docs) == 0 {
		return nil
	}

	queryTerms := dedupe(tokenize.Tokens(query))
	if len(queryTerms) == 0 {
		return nil
	}

	n := float64(len(idx.docs))
	avgLen := float64(idx.lenTotal) / n

	idf := make(map[string]float64, len(queryTerms))
	for _, t := range queryTerms {
		df := float64(idx.docFreq[t])
		idf[t] = math.Log((n-df+0.5)/(df+0.5) + 1)
	}

	var results []Result
	for docID, d := range idx.docs {
		var score float64
		for _, t := range queryTerms {
			tf, ok := d.termFreq[t]
			if !ok {
				continue
			}
			num := float64(tf) * (idx.k1 + 1)
			denom := float64(tf) + idx.k1*(1-idx.b+idx.b*float64(d.length)/avgLen)
			score += idf[t] * (num / denom)
		}
		if score <= 0 {
			continue
		}
		results = append(results, Result{DocID: docID, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
