package migration

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/supply?sslmode=disable", DatabaseURL("postgres://u:p@db:5432/supply?sslmode=disable"))
	assert.Equal(t, "pgx5://db/supply", DatabaseURL("postgresql://db/supply"))
	assert.Equal(t, "pgx5://db/supply", DatabaseURL("pgx5://db/supply"))
}

func TestMigrationFilesArePaired(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "..", "migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, f := range files {
		name := filepath.Base(f)
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
		body, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(string(body)), name)
	}

	keys := func(m map[string]bool) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}
	assert.Equal(t, keys(ups), keys(downs))
}
