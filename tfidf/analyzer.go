// Package tfidf turns normalised values into L2-normalised TF-IDF vectors.
//
// Weighting follows the usual smoothed scheme: raw term counts multiplied by
// idf(t) = ln((1+n)/(1+df(t))) + 1, where n is the number of fitted documents.
package tfidf

import (
	"strings"
	"unicode"
)

// Analyzer splits a document into terms.
type Analyzer func(doc string) []string

// Words returns an analyzer emitting runs of word characters (letters,
// digits, marks and underscore) as terms. A single character is a word.
func Words() Analyzer {
	return func(doc string) []string {
		return strings.FieldsFunc(doc, func(r rune) bool {
			return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_')
		})
	}
}

// CharNGrams returns an analyzer emitting every character n-gram with
// minN <= n <= maxN. Runs of whitespace are collapsed to one space first and
// spaces are part of the grams.
func CharNGrams(minN, maxN int) Analyzer {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	return func(doc string) []string {
		runes := []rune(strings.Join(strings.Fields(doc), " "))
		var terms []string
		for n := minN; n <= maxN; n++ {
			for i := 0; i+n <= len(runes); i++ {
				terms = append(terms, string(runes[i:i+n]))
			}
		}
		return terms
	}
}
