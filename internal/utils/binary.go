package utils

import "bytes"

// HasBinaryContent reports whether the provided byte slice appears to contain
// binary data. Only NUL bytes are treated as a binary marker: text in a legacy
// encoding may fail UTF-8 validation and must still be recoverable downstream.
func HasBinaryContent(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0
}
