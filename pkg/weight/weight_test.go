package weight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	assert.True(t, Zero().IsZero())
	assert.Equal(t, Weight{}, Zero())
	assert.False(t, FromParts(0, 1).IsZero())
}

func TestAdd(t *testing.T) {
	assert.Equal(t, FromParts(30, 30), FromParts(10, 10).Add(FromParts(20, 20)))
	assert.Equal(t, FromParts(10, 10), FromParts(10, 10).Add(Zero()))
}

func TestSaturatingAdd(t *testing.T) {
	maxed := FromParts(math.MaxUint64-1, 5)
	got := maxed.SaturatingAdd(FromParts(10, 5))
	assert.Equal(t, FromParts(math.MaxUint64, 10), got)
}

func TestAllLTE(t *testing.T) {
	assert.True(t, FromParts(1, 1).AllLTE(FromParts(1, 2)))
	assert.False(t, FromParts(3, 1).AllLTE(FromParts(2, 9)))
	assert.True(t, Zero().AllLTE(Zero()))
}

func TestString(t *testing.T) {
	assert.Equal(t, "Weight(ref_time: 10, proof_size: 20)", FromParts(10, 20).String())
}
