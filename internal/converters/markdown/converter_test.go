package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors/chunker"
)

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)
	assert.Equal(t, "markdown", c.Name())
	assert.Equal(t, []string{".md", ".markdown"}, c.Extensions())
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "canonical atx unchanged",
			in:   "intro\n\n# Title\nbody *em* [link](http://x)\n\n## Sub\n- item\n",
			want: "intro\n\n# Title\nbody *em* [link](http://x)\n\n## Sub\n- item\n",
		},
		{
			name: "setext headings",
			in:   "Title\n=====\nbody\n\nSub\n---\ntext\n",
			want: "# Title\nbody\n\n## Sub\ntext\n",
		},
		{
			name: "multi-line setext",
			in:   "Line one\nline two\n===\nafter\n",
			want: "# Line one line two\nafter\n",
		},
		{
			name: "closing sequence",
			in:   "## Install ##\nsteps\n",
			want: "## Install\nsteps\n",
		},
		{
			name: "hash inside title kept",
			in:   "# Learning C#\nnotes\n",
			want: "# Learning C#\nnotes\n",
		},
		{
			name: "indented atx",
			in:   "   # Intro\ntext\n",
			want: "# Intro\ntext\n",
		},
		{
			name: "extra spaces after marker",
			in:   "#    Spaced   \ntext",
			want: "# Spaced\ntext",
		},
		{
			name: "heading at end without newline",
			in:   "text\n\nEnd\n===",
			want: "text\n\n# End",
		},
		{
			name: "fenced code untouched",
			in:   "```\nTitle\n===\n# not a heading\n```\n",
			want: "```\nTitle\n===\n# not a heading\n```\n",
		},
		{
			name: "blockquote heading untouched",
			in:   "> Quoted\n> ===\n",
			want: "> Quoted\n> ===\n",
		},
		{
			name: "thematic break untouched",
			in:   "para\n\n---\n\nmore\n",
			want: "para\n\n---\n\nmore\n",
		},
		{
			name: "crlf normalised",
			in:   "Title\r\n===\r\nbody\r\n",
			want: "# Title\nbody\n",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(context.Background(), "doc.md", []byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_InvalidUTF8(t *testing.T) {
	_, err := New().Convert(context.Background(), "doc.md", []byte{0xff})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestConvert_SetextFeedsChunker(t *testing.T) {
	out, err := New().Convert(context.Background(), "doc.md", []byte("Guide\n=====\nintro\n\nSetup\n-----\nrun it\n"))
	require.NoError(t, err)

	drafts := chunker.Split(out)
	require.Len(t, drafts, 2)
	assert.Equal(t, []string{"Guide"}, drafts[0].HeadingPath)
	assert.Equal(t, "intro\n\n", drafts[0].Body)
	assert.Equal(t, []string{"Guide", "Setup"}, drafts[1].HeadingPath)
	assert.Equal(t, "run it\n", drafts[1].Body)
}

func TestTrimClosingSequence(t *testing.T) {
	assert.Equal(t, "Title", trimClosingSequence("Title ##"))
	assert.Equal(t, "C#", trimClosingSequence("C#"))
	assert.Equal(t, "", trimClosingSequence("###"))
	assert.Equal(t, "plain", trimClosingSequence("plain"))
}
