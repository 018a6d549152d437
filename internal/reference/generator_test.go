package reference

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProducesUniqueWellFormedReferences(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]struct{}, 10_000)

	for i := 0; i < 10_000; i++ {
		ref, err := gen.Create(DefaultPrefix)
		require.NoError(t, err)
		require.True(t, Valid(ref), "malformed reference %q", ref)
		require.True(t, strings.HasPrefix(ref, "ENR_"))
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %q", ref)
		seen[ref] = struct{}{}
	}
}

func TestCreateConcurrent(t *testing.T) {
	gen := NewGenerator()
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				ref, err := gen.Create("PAY")
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				mu.Lock()
				seen[ref] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 2000)
}

func TestCreatePrefixHandling(t *testing.T) {
	gen := NewGenerator()

	ref, err := gen.Create("")
	require.NoError(t, err)
	assert.Len(t, ref, 26)
	assert.NotContains(t, ref, "_")
	assert.True(t, Valid(ref))

	ref, err = gen.Create(" enr ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "ENR_"))

	for _, bad := range []string{"ENR-1", "TOOLONGPREFIX1", "ÉNR", "A B"} {
		_, err := gen.Create(bad)
		assert.ErrorIs(t, err, ErrInvalidPrefix, bad)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"ENR_01JB8M3Z5X7Q2W4E6R8T0Y2S4I", false}, // I is not Crockford
		{"ENR_01JB8M3Z5X7Q2W4E6R8T0Y2S4V", true},
		{"01JB8M3Z5X7Q2W4E6R8T0Y2S4V", true},
		{"enr_01JB8M3Z5X7Q2W4E6R8T0Y2S4V", false},
		{"ENR_01JB8M3Z5X7Q2W4E6R8T0Y2S4", false},
		{"ENR__01JB8M3Z5X7Q2W4E6R8T0Y2S4V", false},
		{"../../etc/passwd", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.ref), tt.ref)
	}
}
