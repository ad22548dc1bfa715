package schema

import (
	"strings"
)

const (
	minFAQPairs      = 2
	maxQuestionChars = 300
	maxAnswerChars   = 1500
)

// faqPair is one extracted question with its answer text.
type faqPair struct {
	Question string
	Answer   string
}

var interrogativeLeads = []string{
	"what", "how", "why", "when", "where", "who", "which", "can", "do",
	"does", "is", "are", "will", "should",
}

// questionLike reports whether a heading reads as a question: it either ends
// with a question mark or opens with an interrogative word.
func questionLike(heading string) bool {
	trimmed := strings.TrimSpace(heading)
	if trimmed == "" || len(trimmed) > maxQuestionChars {
		return false
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	first := strings.ToLower(strings.Fields(trimmed)[0])
	for _, lead := range interrogativeLeads {
		if first == lead {
			return true
		}
	}
	return false
}

// extractFAQs pairs question-like headings with the text that follows them in
// the page excerpt. The answer for a question runs until the next heading
// found in the excerpt, capped at maxAnswerChars.
func extractFAQs(headings []string, excerpt string) []faqPair {
	var questions []string
	for _, h := range headings {
		if questionLike(h) {
			questions = append(questions, strings.TrimSpace(h))
		}
	}
	if len(questions) == 0 {
		return nil
	}

	var pairs []faqPair
	for i, q := range questions {
		start := strings.Index(excerpt, q)
		if start < 0 {
			continue
		}
		start += len(q)

		end := len(excerpt)
		if i+1 < len(questions) {
			if next := strings.Index(excerpt[start:], questions[i+1]); next >= 0 {
				end = start + next
			}
		}

		answer := strings.TrimSpace(excerpt[start:end])
		if answer == "" {
			continue
		}
		if len(answer) > maxAnswerChars {
			answer = answer[:maxAnswerChars]
		}
		pairs = append(pairs, faqPair{Question: q, Answer: answer})
	}
	return pairs
}
