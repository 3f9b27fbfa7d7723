package translate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_SentenceBoundaries(t *testing.T) {
	sentence := "The estate plan covers wills and trusts for the whole family. "
	text := strings.Repeat(sentence, 5000/len(sentence)+1)[:5000]

	pieces := Split(text, DeepLMaxChunk)
	require.Greater(t, len(pieces), 1)
	assert.Equal(t, text, strings.Join(pieces, ""))

	for i, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), DeepLMaxChunk)
		if i < len(pieces)-1 {
			assert.True(t, strings.HasSuffix(p, ". "), "piece %d ends mid sentence: %q", i, p[len(p)-20:])
		}
	}
}

func TestSplit_PrefersParagraphs(t *testing.T) {
	para := strings.Repeat("word ", 60) // 300 chars
	text := para + "\n\n" + para + "\n\n" + para

	pieces := Split(text, AzureMaxChunk)
	assert.Equal(t, text, strings.Join(pieces, ""))
	require.Len(t, pieces, 3)
	assert.True(t, strings.HasSuffix(pieces[0], "\n\n"))
	assert.True(t, strings.HasSuffix(pieces[1], "\n\n"))
}

func TestSplit_WhitespaceThenHardCut(t *testing.T) {
	words := strings.Repeat("abcdefghi ", 100)
	for i, p := range Split(words, 95) {
		assert.LessOrEqual(t, len(p), 95)
		assert.True(t, strings.HasSuffix(p, " "), "piece %d", i)
	}

	solid := strings.Repeat("x", 250)
	pieces := Split(solid, 100)
	require.Len(t, pieces, 3)
	assert.Len(t, pieces[0], 100)
	assert.Len(t, pieces[2], 50)
}

func TestSplit_Small(t *testing.T) {
	assert.Nil(t, Split("", 10))
	assert.Equal(t, []string{"short"}, Split("short", 10))
	assert.Equal(t, []string{"exact"}, Split("exact", 5))
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("ñ", 30)
	pieces := Split(text, 10)
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.Equal(t, 10, utf8.RuneCountInString(p))
	}
}

func TestTrimParts(t *testing.T) {
	lead, core, trail := trimParts("\n\n  Hello world. \n")
	assert.Equal(t, "\n\n  ", lead)
	assert.Equal(t, "Hello world.", core)
	assert.Equal(t, " \n", trail)

	lead, core, trail = trimParts("   ")
	assert.Equal(t, "   ", lead)
	assert.Empty(t, core)
	assert.Empty(t, trail)
}

func TestSplit_KeepsProtectedTermsWhole(t *testing.T) {
	g := NewGlossary([]string{"Probate Plus"})
	text := g.Protect(strings.Repeat("a", 2484) + " Probate Plus and more words here")

	pieces := Split(text, DeepLMaxChunk)
	require.Len(t, pieces, 2)
	assert.Equal(t, text, strings.Join(pieces, ""))
	assert.Equal(t, strings.Repeat("a", 2484)+" ", pieces[0])
	for _, p := range pieces {
		assert.Equal(t, strings.Count(p, "<keep>"), strings.Count(p, "</keep>"), p)
	}
}

func TestSplit_NeverCutsInsideTags(t *testing.T) {
	text := strings.Repeat("b", 15) + `<a href="/x y">link</a> tail`

	pieces := Split(text, 20)
	assert.Equal(t, []string{strings.Repeat("b", 15), `<a href="/x y">link`, "</a> tail"}, pieces)
}

func TestCuttable(t *testing.T) {
	ok := cuttable([]rune("x <keep>a b</keep> <b>y</b>"))
	assert.True(t, ok[2])
	assert.False(t, ok[4])
	assert.False(t, ok[10])
	assert.True(t, ok[18])
	assert.False(t, ok[20])
	assert.True(t, ok[22])
	assert.True(t, ok[len(ok)-1])
}

func TestSplit_TagOpeningAtWindowEnd(t *testing.T) {
	text := strings.Repeat("c", 9) + "<keep>x</keep>"
	pieces := Split(text, 10)
	require.NotEmpty(t, pieces)
	assert.Equal(t, strings.Repeat("c", 9), pieces[0])
	assert.Equal(t, text, strings.Join(pieces, ""))
}
