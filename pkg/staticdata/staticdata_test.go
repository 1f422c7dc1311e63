package staticdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand struct{ n int }

func (f fixedRand) IntN(n int) int { return f.n % n }

func TestLoad(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, store.Quotes())
	assert.NotEmpty(t, store.Users())
	assert.True(t, store.Root().IsDir())
	assert.NotEmpty(t, store.Root().Children())
}

func TestLookupRoot(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	node, err := store.Lookup("/")
	require.NoError(t, err)
	assert.Same(t, store.Root(), node)
}

func TestLookupFile(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	node, err := store.Lookup("/docs/rfc-index.txt")
	require.NoError(t, err)
	assert.False(t, node.IsDir())
	assert.Contains(t, string(node.Content()), "RFC 1436")
}

func TestLookupDirWithTrailingSlash(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	node, err := store.Lookup("/docs/")
	require.NoError(t, err)
	assert.True(t, node.IsDir())

	same, err := store.Lookup("/docs")
	require.NoError(t, err)
	assert.Same(t, node, same)
}

func TestLookupErrors(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	_, err = store.Lookup("docs")
	assert.ErrorIs(t, err, ErrNotAbsolute)

	_, err = store.Lookup("/no such file")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = store.Lookup("/docs/../about.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Lookup("/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	// Descending through a file is not found, not invalid.
	_, err = store.Lookup("/about.txt/deeper")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRandomQuote(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	assert.Equal(t, store.Quotes()[0], store.RandomQuote(fixedRand{0}))
	assert.Equal(t, store.Quotes()[2], store.RandomQuote(fixedRand{2}))
}

func TestQuotesFitTheWireLimit(t *testing.T) {
	store, err := Load()
	require.NoError(t, err)

	for _, q := range store.Quotes() {
		assert.LessOrEqual(t, len(q), MaxQuoteBytes)
	}
}

func TestParseQuotesRejectsControlBytes(t *testing.T) {
	_, err := parseQuotes("fine quote\nbad\x01quote\n")
	require.Error(t, err)
}

func TestParseUsers(t *testing.T) {
	users, err := parseUsers("alice:Alice Liddell:First line.\\nSecond line.\nbob:Bob\n")
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "Alice Liddell", users[0].FullName)
	assert.Equal(t, "First line.\nSecond line.", users[0].ExtraInfo)

	assert.Equal(t, "bob", users[1].Username)
	assert.Empty(t, users[1].ExtraInfo)
}

func TestParseUsersRejectsMalformed(t *testing.T) {
	_, err := parseUsers("nodelimiter\n")
	assert.Error(t, err)

	_, err = parseUsers("Bad User:Name\n")
	assert.Error(t, err)

	_, err = parseUsers(":No Name\n")
	assert.Error(t, err)
}
