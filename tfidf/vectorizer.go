package tfidf

import (
	"math"
	"slices"

	"github.com/hupe1980/entitynet/similarity"
)

// Vectorizer learns a vocabulary and document frequencies from a corpus and
// maps documents to sparse TF-IDF vectors over that vocabulary.
type Vectorizer struct {
	analyzer Analyzer
	vocab    map[string]uint32
	idf      []float64
}

// New creates an unfitted vectorizer.
func New(analyzer Analyzer) *Vectorizer {
	return &Vectorizer{analyzer: analyzer}
}

// Fit learns the vocabulary of docs. Term ids follow the sorted term order.
func (v *Vectorizer) Fit(docs []string) *Vectorizer {
	df := make(map[string]int)
	seen := make(map[string]struct{})
	for _, doc := range docs {
		clear(seen)
		for _, term := range v.analyzer(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	slices.Sort(terms)

	n := float64(len(docs))
	v.vocab = make(map[string]uint32, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocab[term] = uint32(i)
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return v
}

// VocabularySize returns the number of learned terms.
func (v *Vectorizer) VocabularySize() int {
	return len(v.vocab)
}

// Transform maps docs to vectors. Terms outside the fitted vocabulary are
// ignored; a document without known terms maps to the empty vector.
func (v *Vectorizer) Transform(docs []string) []similarity.Vector {
	out := make([]similarity.Vector, len(docs))
	counts := make(map[uint32]int)
	for i, doc := range docs {
		clear(counts)
		for _, term := range v.analyzer(doc) {
			if id, ok := v.vocab[term]; ok {
				counts[id]++
			}
		}
		out[i] = v.weigh(counts)
	}
	return out
}

// FitTransform fits on docs and transforms them.
func (v *Vectorizer) FitTransform(docs []string) []similarity.Vector {
	return v.Fit(docs).Transform(docs)
}

func (v *Vectorizer) weigh(counts map[uint32]int) similarity.Vector {
	if len(counts) == 0 {
		return similarity.Vector{}
	}

	ids := make([]uint32, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	weights := make([]float64, len(ids))
	var norm float64
	for i, id := range ids {
		w := float64(counts[id]) * v.idf[id]
		weights[i] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)

	values := make([]float32, len(ids))
	for i, w := range weights {
		values[i] = float32(w / norm)
	}

	return similarity.Vector{Indices: ids, Values: values}
}
