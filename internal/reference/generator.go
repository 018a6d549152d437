package reference

import (
	"crypto/rand"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidPrefix = errors.New("invalid_reference_prefix")

	prefixPattern    = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)
	referencePattern = regexp.MustCompile(`^([A-Z0-9]{1,12}_)?[0-9A-HJKMNP-TV-Z]{26}$`)
)

// DefaultPrefix marks references minted for enrollment fee payments.
const DefaultPrefix = "ENR"

// Generator mints payment references. The ULID body carries a millisecond
// timestamp and 80 bits drawn from crypto/rand, so two references never
// collide in practice and cannot be predicted from earlier ones.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
		now:     time.Now,
	}
}

// Create returns PREFIX_<ULID>. An empty prefix yields the bare ULID.
func (g *Generator) Create(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix != "" && !prefixPattern.MatchString(prefix) {
		return "", ErrInvalidPrefix
	}

	g.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()
	if err != nil {
		return "", err
	}

	if prefix == "" {
		return id.String(), nil
	}
	return prefix + "_" + id.String(), nil
}

// Valid reports whether ref has the shape produced by Create.
func Valid(ref string) bool {
	return referencePattern.MatchString(ref)
}
