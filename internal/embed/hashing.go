package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDimensions is the vector length used when none is configured.
const DefaultHashingDimensions = 1024

// stopwords are dropped before hashing so that function words do not
// dominate short texts.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"its": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "so": {},
	"that": {}, "the": {}, "their": {}, "them": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "why": {}, "will": {}, "with": {}, "you": {},
	"your": {},
}

// Hashing is a local embedder based on signed feature hashing of a
// bag of words. It needs no network and no model files, which makes it the
// default for development and tests. Texts sharing content words land
// close together; it has no notion of synonyms.
type Hashing struct {
	dims int
}

var _ Embedder = (*Hashing)(nil)

// NewHashing returns a hashing embedder producing vectors of length dims.
// A non-positive dims selects DefaultHashingDimensions.
func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &Hashing{dims: dims}
}

// Embed implements Embedder. The result is L2-normalised unless text has
// no content words, in which case the zero vector is returned.
func (h *Hashing) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dims)
	for _, tok := range Tokenize(text) {
		hs := fnv.New64a()
		_, _ = hs.Write([]byte(tok))
		sum := hs.Sum64()

		bucket := int(sum % uint64(h.dims))
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	normalize(vec)
	return vec, nil
}

// Dimensions implements Embedder.
func (h *Hashing) Dimensions() int { return h.dims }

// Model implements Embedder.
func (h *Hashing) Model() string { return fmt.Sprintf("hashing-bow-%d", h.dims) }

// Tokenize lower-cases text, splits it on anything that is not a letter
// or digit and drops stopwords and single-character tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
}
