package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsDustWitnessV0KeyHash(t *testing.T) {
	spk := []byte{0x00, 0x14}
	spk = append(spk, make([]byte, 20)...)

	require.True(t, isDust(293, spk))
	require.False(t, isDust(294, spk))
}

func TestIsDustUnknownScriptClassUsesDefault(t *testing.T) {
	spk := []byte{0x6a, 0x00}
	require.True(t, isDust(545, spk))
	require.False(t, isDust(546, spk))
}
