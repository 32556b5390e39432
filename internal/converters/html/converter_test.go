package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)
	assert.Equal(t, "html", c.Name())
	assert.Equal(t, []string{".html", ".htm"}, c.Extensions())
}

func convert(t *testing.T, in string) string {
	t.Helper()
	out, err := New().Convert(context.Background(), "page.html", []byte(in))
	require.NoError(t, err)
	return out
}

func TestConvert_Document(t *testing.T) {
	in := `<html><head><title>Ignored</title><style>p { color: red }</style></head>
<body>
<h1>Guide</h1>
<p>Intro   text with <b>bold</b> and <a href="/x">a link</a>.</p>
<h2>Setup</h2>
<ul><li>one</li><li>two</li></ul>
<script>alert("x")</script>
</body></html>`

	want := "# Guide\n" +
		"Intro text with bold and a link.\n\n" +
		"## Setup\n" +
		"- one\n\n" +
		"- two\n"
	assert.Equal(t, want, convert(t, in))
}

func TestConvert_PreBecomesFence(t *testing.T) {
	in := "<h2>Config</h2><pre>\n# comment\nkey = 1\n</pre><p>after</p>"

	assert.Equal(t, "## Config\n```\n# comment\nkey = 1\n```\n\nafter\n", convert(t, in))
}

func TestConvert_EscapesHeadingLikeText(t *testing.T) {
	in := "<p># not a heading</p><p>```not a fence</p>"

	assert.Equal(t, "\\# not a heading\n\n\\```not a fence\n", convert(t, in))
}

func TestConvert_LineBreaksAndEntities(t *testing.T) {
	in := "<p>first&nbsp;line<br>second &amp; last</p>"

	assert.Equal(t, "first line\nsecond & last\n", convert(t, in))
}

func TestConvert_TableCells(t *testing.T) {
	in := "<table><tr><th>Key</th><th>Value</th></tr><tr><td>a</td><td>1</td></tr></table>"

	assert.Equal(t, "Key Value\n\na 1\n", convert(t, in))
}

func TestConvert_EmptyHeadingDropped(t *testing.T) {
	assert.Equal(t, "text\n", convert(t, "<h3>  </h3><p>text</p>"))
}

func TestConvert_Empty(t *testing.T) {
	assert.Equal(t, "", convert(t, ""))
	assert.Equal(t, "", convert(t, "<html><head><title>x</title></head><body></body></html>"))
}

func TestConvert_InvalidUTF8(t *testing.T) {
	_, err := New().Convert(context.Background(), "page.html", []byte{0xff, '<'})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
