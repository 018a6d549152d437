package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	entries, err := fs.ReadDir(sub, ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestPaymentsSchemaGuardsReference(t *testing.T) {
	body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000002_create_payments.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ux_payments_reference")
	assert.Contains(t, string(body), "payments_success_has_paid_at")
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}
