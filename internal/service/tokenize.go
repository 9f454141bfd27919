package service

import (
	"strings"

	"github.com/cloo-solutions/archivesearch/internal/domain"
)

const phraseQuote = "'"

// Tokenize splits a raw search string into terms. Words wrapped in single
// quotes, possibly across several words, form one phrase term. Quote
// characters are kept on phrase terms. A phrase still open when the input
// ends is dropped.
func Tokenize(raw string) []domain.QueryTerm {
	terms := []domain.QueryTerm{}

	var pending strings.Builder
	inPhrase := false

	for _, word := range strings.Fields(raw) {
		if inPhrase {
			pending.WriteString(" ")
			pending.WriteString(word)
			if strings.HasSuffix(word, phraseQuote) {
				terms = append(terms, domain.NewPhraseTerm(pending.String()))
				pending.Reset()
				inPhrase = false
			}
			continue
		}

		if !strings.HasPrefix(word, phraseQuote) {
			terms = append(terms, domain.NewQueryTerm(word))
			continue
		}

		if len(word) >= 2 && strings.HasSuffix(word, phraseQuote) {
			terms = append(terms, domain.NewPhraseTerm(word))
			continue
		}

		pending.WriteString(word)
		inPhrase = true
	}

	return terms
}

// JoinTerms renders terms back into the display form used on result pages
func JoinTerms(terms []domain.QueryTerm) string {
	texts := make([]string, len(terms))
	for i, term := range terms {
		texts[i] = term.Text
	}
	return strings.Join(texts, " ")
}
