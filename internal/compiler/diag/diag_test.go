package diag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/span"
)

func TestBagAddSetsSeverityAndFormatsMessage(t *testing.T) {
	b := NewBag()
	b.AddError(span.Span{Start: 1, End: 2}, "unexpected %s", "token")
	b.AddWarning(span.Span{Start: 3, End: 4}, "no explicit role given")

	items := b.All()
	require.Len(t, items, 2)
	require.Equal(t, Error, items[0].Severity)
	require.Equal(t, "unexpected token", items[0].Message)
	require.Equal(t, Warning, items[1].Severity)
}

func TestBagHasErrorsIgnoresWarnings(t *testing.T) {
	b := NewBag()
	require.False(t, b.HasErrors())

	b.AddWarning(span.Dummy(), "heads up")
	require.False(t, b.HasErrors(), "a warning alone must not trip HasErrors")

	b.AddError(span.Dummy(), "boom")
	require.True(t, b.HasErrors())
}

func TestBagExtendMergesInOrderAndToleratesNil(t *testing.T) {
	a := NewBag()
	a.AddError(span.Dummy(), "first")

	b := NewBag()
	b.AddError(span.Dummy(), "second")

	a.Extend(b)
	require.Equal(t, 2, a.Len())
	require.Equal(t, "first", a.All()[0].Message)
	require.Equal(t, "second", a.All()[1].Message)

	a.Extend(nil)
	require.Equal(t, 2, a.Len(), "extending with nil must be a no-op")
}

func TestSeverityString(t *testing.T) {
	require.Equal(t, "error", Error.String())
	require.Equal(t, "warning", Warning.String())
}
