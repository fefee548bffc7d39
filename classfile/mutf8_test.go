package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifiedUTF8ASCII(t *testing.T) {
	s, err := decodeModifiedUTF8([]byte("java/lang/Object"))
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", s)
}

func TestModifiedUTF8TwoByte(t *testing.T) {
	// U+0000 is encoded as 0xC0 0x80, never as a raw zero byte.
	s, err := decodeModifiedUTF8([]byte{'a', 0xC0, 0x80, 'b'})
	require.NoError(t, err)
	assert.Equal(t, "a\x00b", s)

	// U+00E9 (é)
	s, err = decodeModifiedUTF8([]byte{0xC3, 0xA9})
	require.NoError(t, err)
	assert.Equal(t, "é", s)
}

func TestModifiedUTF8ThreeByte(t *testing.T) {
	// U+4E2D
	s, err := decodeModifiedUTF8([]byte{0xE4, 0xB8, 0xAD})
	require.NoError(t, err)
	assert.Equal(t, "中", s)
}

func TestModifiedUTF8SurrogatePair(t *testing.T) {
	// U+1F600 is a surrogate pair D83D DE00, each unit encoded in three bytes.
	s, err := decodeModifiedUTF8([]byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80})
	require.NoError(t, err)
	assert.Equal(t, "\U0001F600", s)
}

func TestModifiedUTF8Invalid(t *testing.T) {
	for name, data := range map[string][]byte{
		"raw NUL":              {'a', 0x00},
		"truncated two-byte":   {0xC3},
		"truncated three-byte": {0xE4, 0xB8},
		"bad continuation":     {0xC3, 0x29},
		"four-byte lead":       {0xF0, 0x9F, 0x98, 0x80},
	} {
		_, err := decodeModifiedUTF8(data)
		assert.Error(t, err, name)
	}
}

func TestModifiedUTF8InPool(t *testing.T) {
	b := newClassBuilder()
	idx := b.utf8Raw([]byte{0xC3, 0xA9, 't', 0xC3, 0xA9})
	pool := poolOf(t, b)
	s, err := pool.Utf8(idx)
	require.NoError(t, err)
	assert.Equal(t, "été", s)
}

func TestModifiedUTF8InPoolInvalid(t *testing.T) {
	b := newClassBuilder()
	b.utf8Raw([]byte{'a', 0x00})
	_, err := Parse(b.build())
	require.Error(t, err)
}
