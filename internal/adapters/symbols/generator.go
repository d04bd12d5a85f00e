package symbols

import "github.com/alejandrodnm/memesim/internal/ports"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generator produces short uppercase ticker symbols. It does not track
// uniqueness; the ledger re-requests on collision.
type Generator struct {
	rnd    ports.Random
	minLen int
	maxLen int
}

// New returns a generator of 3 to 4 letter symbols.
func New(rnd ports.Random) *Generator {
	return &Generator{rnd: rnd, minLen: 3, maxLen: 4}
}

// Generate returns one symbol.
func (g *Generator) Generate() string {
	n := g.minLen + int(g.rnd.Float64()*float64(g.maxLen-g.minLen+1))
	if n > g.maxLen {
		n = g.maxLen
	}
	b := make([]byte, n)
	for i := range b {
		j := int(g.rnd.Float64() * float64(len(alphabet)))
		if j >= len(alphabet) {
			j = len(alphabet) - 1
		}
		b[i] = alphabet[j]
	}
	return string(b)
}
