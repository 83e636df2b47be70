package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvisibleTextStripsHiddenRunes(t *testing.T) {
	s := NewInvisibleText()
	spec := Spec{Name: "invisible_text", Kind: KindPattern, Action: ActionRedact}

	hidden := "hel\u200blo\u200d wor\ufeffld"
	outcome, err := s.Evaluate(context.Background(), hidden, spec)
	require.NoError(t, err)

	assert.True(t, outcome.Triggered)
	assert.Equal(t, "hello world", outcome.Text)
}

func TestInvisibleTextPassesVisibleText(t *testing.T) {
	s := NewInvisibleText()
	spec := Spec{Name: "invisible_text", Kind: KindPattern, Action: ActionRedact}

	text := "plain visible text, including unicode: héllo wörld"
	outcome, err := s.Evaluate(context.Background(), text, spec)
	require.NoError(t, err)

	assert.False(t, outcome.Triggered)
	assert.Equal(t, text, outcome.Text)
}
