package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPost_Validate(t *testing.T) {
	n := NewPost{AuthorID: 1, Title: " Meta de junho ", Content: "Batemos a meta!\nParabéns a todos."}
	require.NoError(t, n.Validate())
	assert.Equal(t, "Meta de junho", n.Title)
	assert.Equal(t, "Batemos a meta!", n.Excerpt)

	for _, p := range []NewPost{
		{AuthorID: 1, Content: "x"},
		{AuthorID: 1, Title: "x", Content: "   "},
		{Title: "x", Content: "y"},
	} {
		assert.ErrorIs(t, p.Validate(), ErrInvalid)
	}
}

func TestExcerpt_Truncates(t *testing.T) {
	long := strings.Repeat("é", 200)
	got := Excerpt(long)
	assert.Equal(t, excerptLen+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}
