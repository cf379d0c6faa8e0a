package detector

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// WordPieceTokenizer encodes text with the vocabulary the classifier was
// trained with. Truncation and padding must match training-time
// preprocessing exactly; a drift here degrades accuracy silently.
type WordPieceTokenizer struct {
	vocab        map[string]int64
	lowerCase    bool
	continuation string
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
}

var requiredSpecials = []string{"[CLS]", "[SEP]", "[PAD]", "[UNK]"}

// LoadWordPieceTokenizer builds the tokenizer from a vocab.txt file
// (one token per line, line number = token id).
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var idx int64
	for sc.Scan() {
		token := strings.TrimSpace(sc.Text())
		if token == "" {
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}
	for _, sp := range requiredSpecials {
		if _, ok := vocab[sp]; !ok {
			return nil, fmt.Errorf("vocab missing special token %s", sp)
		}
	}

	return &WordPieceTokenizer{
		vocab:        vocab,
		lowerCase:    true,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
	}, nil
}

// Encode converts text into token ids and an attention mask, both of
// length seqLen. Sequences longer than seqLen keep the head (first
// seqLen-2 wordpieces between [CLS] and [SEP]); shorter sequences are
// right-padded with [PAD], masked out.
func (t *WordPieceTokenizer) Encode(text string, seqLen int) ([]int64, []int64) {
	if seqLen <= 0 {
		return nil, nil
	}

	budget := seqLen - 2 // room for [CLS] and [SEP]
	ids := make([]int64, 0, seqLen)
	ids = append(ids, t.clsID)

	for _, w := range strings.Fields(text) {
		if len(ids)-1 >= budget {
			break
		}
		if t.lowerCase {
			w = strings.ToLower(w)
		}
		for _, id := range t.wordPiece(w) {
			if len(ids)-1 >= budget {
				break
			}
			ids = append(ids, id)
		}
	}
	ids = append(ids, t.sepID)

	attn := make([]int64, seqLen)
	for i := 0; i < len(ids); i++ {
		attn[i] = 1
	}
	for len(ids) < seqLen {
		ids = append(ids, t.padID)
	}
	return ids, attn
}

// wordPiece splits one whitespace-delimited word greedily into the
// longest matching vocabulary pieces. A word with any unmatchable
// remainder collapses to a single [UNK].
func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	if id, ok := t.vocab[word]; ok {
		return []int64{id}
	}

	var pieces []int64
	start := 0
	for start < len(word) {
		end := len(word)
		matched := false
		for end > start {
			sub := word[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, id)
				start = end
				matched = true
				break
			}
			end--
		}
		if !matched {
			return []int64{t.unkID}
		}
	}
	if len(pieces) == 0 {
		return []int64{t.unkID}
	}
	return pieces
}
