package registry

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		class Class
		in    string
		want  string
	}{
		{"derivative upper-cased", ClassDerivative, " siz3 ", "SIZ3"},
		{"derivative inner spaces collapsed", ClassDerivative, "Si-12.23  M", "SI-12.23 M"},
		{"pair separators removed", ClassCurrencyPair, "usd/rub", "USDRUB"},
		{"pair underscore", ClassCurrencyPair, "EUR_RUB_TOM", "EURRUBTOM"},
		{"isin upper-cased", ClassSecurity, "ru0009029540", "RU0009029540"},
		{"name keeps case", ClassSecurity, "Сбербанк  ао", "Сбербанк ао"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonical(tt.class, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Canonical(ClassSecurity, "   ")
	assert.ErrorIs(t, err, ErrEmptyIdentifier)
	_, err = Canonical(ClassCurrencyPair, "/")
	assert.ErrorIs(t, err, ErrEmptyIdentifier)
}

func TestIsISIN(t *testing.T) {
	assert.True(t, IsISIN("RU0009029540"))
	assert.True(t, IsISIN(" us0378331005 "))
	assert.False(t, IsISIN("SBER"))
	assert.False(t, IsISIN("RU000902954X"))
}

func TestMemoryIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.DeclareDerivative(ctx, "SiZ3")
	require.NoError(t, err)
	b, err := m.DeclareDerivative(ctx, " SIZ3")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := m.DeclareSecurity(ctx, "SiZ3")
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "classes have separate keys")

	assert.Equal(t, 2, m.Len())
}

func TestMemoryConcurrentDeclarations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	codes := []string{"SiZ3", "RIH4", "BRF4", "GDZ3"}

	const workers = 32
	results := make([][]int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]int, len(codes))
			for i, code := range codes {
				id, err := m.DeclareDerivative(ctx, code)
				if err != nil {
					t.Errorf("declare %s: %v", code, err)
					return
				}
				ids[i] = id
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
	assert.Equal(t, len(codes), m.Len())
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().DeclareSecurity(ctx, "X")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestPostgres runs against a real database when TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	p := NewPostgres(pool)
	require.NoError(t, p.EnsureSchema(ctx))

	a, err := p.DeclareDerivative(ctx, "test-contract-1")
	require.NoError(t, err)

	// a fresh handle must see the same row, not just the memo
	b, err := NewPostgres(pool).DeclareDerivative(ctx, "TEST-CONTRACT-1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
