package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	report := "# gqlcheck report\n\n| check | result |\n|---|---|\n| DefaultQuery | **PASS** |\n| ErrorMessages | **FAIL** |\n"

	t.Run("renders report", func(t *testing.T) {
		result, err := Markdown(report, Options{Style: "dark"})
		require.NoError(t, err)
		assert.NotEqual(t, report, result)
		assert.Contains(t, result, "gqlcheck report")
		assert.Contains(t, result, "DefaultQuery")
		assert.Contains(t, result, "ErrorMessages")
	})

	t.Run("no color returns plain content", func(t *testing.T) {
		result, err := Markdown(report, Options{NoColor: true})
		require.NoError(t, err)
		assert.Equal(t, report, result)
	})

	t.Run("explicit style", func(t *testing.T) {
		result, err := Markdown("Some **bold** text.", Options{Style: "notty"})
		require.NoError(t, err)
		assert.Contains(t, result, "bold")
	})

	t.Run("empty content", func(t *testing.T) {
		result, err := Markdown("", Options{})
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(result))
	})

	t.Run("code blocks", func(t *testing.T) {
		result, err := Markdown("```json\n{\"errors\":[]}\n```", Options{Width: 40})
		require.NoError(t, err)
		assert.Contains(t, result, "errors")
	})

	t.Run("lists", func(t *testing.T) {
		result, err := Markdown("- item 1\n- item 2", Options{})
		require.NoError(t, err)
		assert.Contains(t, result, "item 1")
		assert.Contains(t, result, "item 2")
	})
}
