package embedding

import (
	"strings"
	"unicode"
)

const (
	clsID     = 101
	sepID     = 102
	vocabSize = 30000

	// maxWindows bounds the inference cost of one chapter.
	maxWindows = 16
)

// window is one fixed-length model input cut from a chapter.
type window struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	// words is the number of chapter words carried in this window.
	words int
}

// chapterWords lowercases text and splits it on anything that is not a letter,
// digit or apostrophe, so "Sea," and "sea" share a token.
func chapterWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// chapterWindows cuts a chapter into consecutive windows of maxTokens slots,
// each framed by [CLS] and [SEP] and zero padded. Chapters longer than
// maxWindows windows are cut short; truncated reports how many words were
// dropped. Empty text still yields one window holding only the markers.
func chapterWindows(text string, maxTokens int) (windows []window, truncated int) {
	if maxTokens < 3 {
		maxTokens = 256
	}
	words := chapterWords(text)
	per := maxTokens - 2
	for start := 0; start < len(words) || len(windows) == 0; start += per {
		if len(windows) == maxWindows {
			truncated = len(words) - start
			break
		}
		end := start + per
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, newWindow(words[start:end], maxTokens))
	}
	return windows, truncated
}

func newWindow(words []string, maxTokens int) window {
	w := window{
		inputIDs:      make([]int64, maxTokens),
		attentionMask: make([]int64, maxTokens),
		tokenTypeIDs:  make([]int64, maxTokens),
		words:         len(words),
	}
	w.inputIDs[0] = clsID
	w.attentionMask[0] = 1
	pos := 1
	for _, word := range words {
		w.inputIDs[pos] = wordID(word)
		w.attentionMask[pos] = 1
		pos++
	}
	w.inputIDs[pos] = sepID
	w.attentionMask[pos] = 1
	return w
}

// wordID maps a word into the vocabulary range above the special tokens.
func wordID(word string) int64 {
	return int64(sepID + 1 + textHash(word)%(vocabSize-sepID-1))
}

// textHash is a deterministic non-negative string hash.
func textHash(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	// math.MinInt negates to itself.
	if h < 0 {
		return 0
	}
	return h
}
