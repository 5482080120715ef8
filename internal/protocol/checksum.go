package protocol

// Checksum is the running 16-bit byte sum of a transcript.
// Arithmetic wraps modulo 2^16. The zero value is ready to use.
type Checksum struct {
	sum uint16
}

// Add folds every byte of raw into the sum.
// raw must be the line as received, terminators included.
func (c *Checksum) Add(raw []byte) {
	for _, b := range raw {
		c.sum += uint16(b)
	}
}

// AddString is Add for string input
func (c *Checksum) AddString(raw string) {
	for i := 0; i < len(raw); i++ {
		c.sum += uint16(raw[i])
	}
}

// Sum returns the current value
func (c *Checksum) Sum() uint16 {
	return c.sum
}

// Reset clears the sum for a new session
func (c *Checksum) Reset() {
	c.sum = 0
}

// Verify compares the device trailer value against the running sum
func (c *Checksum) Verify(trailer uint16) error {
	if trailer != c.sum {
		return NewChecksumError(trailer, c.sum)
	}
	return nil
}
