package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureFindsMarkerSplitAcrossWrites(t *testing.T) {
	c := &capture{}
	marker := []byte("Listening on 5000")

	c.write([]byte("starting\nListen"))
	_, found := c.after(marker)
	assert.False(t, found)

	c.write([]byte("ing on 5"))
	_, found = c.after(marker)
	assert.False(t, found)

	c.write([]byte("000\nGET /"))
	rest, found := c.after(marker)
	assert.True(t, found)
	assert.Equal(t, "\nGET /", string(rest))
}

func TestCaptureDoesNotRescanOldOutput(t *testing.T) {
	c := &capture{}
	marker := []byte("ready")
	for i := 0; i < 3; i++ {
		c.write([]byte("0123456789"))
		_, found := c.after(marker)
		assert.False(t, found)
	}
	assert.Equal(t, 30-len(marker)+1, c.scanned)

	c.write([]byte("ready!"))
	rest, found := c.after(marker)
	assert.True(t, found)
	assert.Equal(t, "!", string(rest))
}
