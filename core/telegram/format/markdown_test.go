package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	assert.Equal(t, "plain text", Markdown("plain text"))
	assert.Equal(t, "snake\\_case", Markdown("snake_case"))
	assert.Equal(t, "Abel\\_T \\*95\\* \\[x] \\`y\\`", Markdown("Abel_T *95* [x] `y`"))
	assert.Equal(t, "1.5 (ok)!", Markdown("1.5 (ok)!"))
}
