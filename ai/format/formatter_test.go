package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToChannelText_Bold(t *testing.T) {
	out, err := ToChannelText("This is **important**.")
	require.NoError(t, err)
	require.Contains(t, out, "*important*")
	require.NotContains(t, out, "**")
}

func TestToChannelText_Italic(t *testing.T) {
	out, err := ToChannelText("This is *nice* too.")
	require.NoError(t, err)
	require.Contains(t, out, "_nice_")
}

func TestToChannelText_BulletList(t *testing.T) {
	out, err := ToChannelText("Available sizes:\n\n- Small\n- Medium\n- Large\n")
	require.NoError(t, err)
	require.Contains(t, out, "- Small")
	require.Contains(t, out, "- Medium")
	require.Contains(t, out, "- Large")
}

func TestToChannelText_Heading(t *testing.T) {
	out, err := ToChannelText("# Order summary\n\nThanks for your order.")
	require.NoError(t, err)
	require.Contains(t, out, "*Order summary*")
}

func TestToChannelText_NoMarkupPassesThroughUnchanged(t *testing.T) {
	out, err := ToChannelText("Yes, that size is in stock.")
	require.NoError(t, err)
	require.Equal(t, "Yes, that size is in stock.", out)
}

func TestToChannelText_InlineCodeKeepsBackticksWithoutTags(t *testing.T) {
	out, err := ToChannelText("`in stock`")
	require.NoError(t, err)
	require.Contains(t, out, "`in stock`")
	require.NotContains(t, out, "<code>")
}
