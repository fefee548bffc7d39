package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessFlagsHas(t *testing.T) {
	f := AccPublic | AccStatic | AccFinal
	assert.True(t, f.Has(AccPublic))
	assert.True(t, f.Has(AccPublic|AccStatic))
	assert.False(t, f.Has(AccPrivate))
	assert.False(t, f.Has(AccPublic|AccPrivate))
}

func TestAccessFlagsStrings(t *testing.T) {
	assert.Equal(t, "public final super", (AccPublic | AccFinal | AccSuper).ClassString())
	assert.Equal(t, "private static volatile", (AccPrivate | AccStatic | AccVolatile).FieldString())
	// 0x0020 renders as synchronized on methods and super on classes.
	assert.Equal(t, "public synchronized", (AccPublic | AccSynchronized).MethodString())
	assert.Equal(t, "", AccessFlags(0).ClassString())
}
