package parser

// IsBinary reports whether data is a raw byte blob as carried inside a
// packet's Data tree (only []byte is recognized; the wire protocol has no
// streaming binary concept).
func IsBinary(data any) bool {
	_, ok := data.([]byte)
	return ok
}

// HasBinary walks data looking for any embedded byte blob, used to decide
// whether an EVENT/ACK packet must be upgraded to its BINARY_EVENT/BINARY_ACK
// counterpart during encoding.
func HasBinary(data any) bool {
	switch o := data.(type) {
	case nil:
		return false
	case []any:
		for _, v := range o {
			if HasBinary(v) {
				return true
			}
		}
		return false
	case map[string]any:
		for _, v := range o {
			if HasBinary(v) {
				return true
			}
		}
		return false
	}
	return IsBinary(data)
}
