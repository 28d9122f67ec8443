package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/ai/richmessage"
)

func TestLimits_SatisfiesRichMessageLimits(t *testing.T) {
	var l richmessage.Limits = Limits{}
	require.Equal(t, 3, l.MaxButtons())
	require.Equal(t, 10, l.MaxListRows())
}
