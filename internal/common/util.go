package common

// WipeByteArray overwrites the slice contents with zeros. Used for passwords
// and other short-lived secrets once they are no longer needed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
