package ports

import (
	"time"

	"github.com/alejandrodnm/memesim/internal/domain"
)

// Random is the uniform source the simulation draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type Random = domain.Rand

// Clock supplies wall-clock timestamps.
type Clock interface {
	Now() time.Time
}

// SymbolGenerator produces candidate ticker symbols (3-4 uppercase letters).
// Candidates may collide with symbols already in use; the caller re-requests.
type SymbolGenerator interface {
	Generate() string
}
