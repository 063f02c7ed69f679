package names

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSiteNameDeterministic(t *testing.T) {
	g := New()
	ctx := context.Background()

	first, err := g.SiteName(ctx, 42)
	require.NoError(t, err)
	second, err := g.SiteName(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSiteNameVariesAcrossSeeds(t *testing.T) {
	g := New()
	ctx := context.Background()

	seen := map[string]bool{}
	for seed := int64(0); seed < 50; seed++ {
		name, err := g.SiteName(ctx, seed)
		require.NoError(t, err)
		require.NotEmpty(t, name)
		require.Equal(t, strings.TrimSpace(name), name)
		seen[name] = true
	}
	// Collisions are possible but 50 seeds should not collapse to a handful.
	require.Greater(t, len(seen), 25)
}
