package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler_SplitFrame(t *testing.T) {
	var a Assembler

	assert.Nil(t, a.Push([]byte{0xFF, 0xD8, 0x01}))
	assert.Nil(t, a.Push([]byte{0x02, 0x03}))
	full := a.Push([]byte{0x04, 0xFF, 0xD9})

	assert.Equal(t, []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0x04, 0xFF, 0xD9}, full)
}

func TestAssembler_HeaderRestartsFrame(t *testing.T) {
	var a Assembler

	a.Push([]byte{0xFF, 0xD8, 0xAA})
	full := a.Push([]byte{0xFF, 0xD8, 0xBB, 0xFF, 0xD9})

	assert.Equal(t, []byte{0xFF, 0xD8, 0xBB, 0xFF, 0xD9}, full)
	assert.Nil(t, a.Push([]byte{0x00}), "buffer empty after a complete frame")
}

func TestNewSourceFor(t *testing.T) {
	local := &Source{device: "0"}

	assert.Same(t, local, NewSourceFor("0", local))

	udp, ok := NewSourceFor("udp::9000", local).(*UDPSource)
	if assert.True(t, ok) {
		assert.Equal(t, ":9000", udp.addr)
	}
}
