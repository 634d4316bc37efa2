package output

import (
	"fmt"
)

// maxInlineBytes is the longest byte string printed as-is; longer ones, such
// as encoded images, are summarized.
const maxInlineBytes = 32

// NormalizeJSONValue turns a generically decoded CBOR or MessagePack value into
// something encoding/json accepts: map keys become strings and long byte
// strings become a size summary.
func NormalizeJSONValue(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[fmt.Sprint(key)] = NormalizeJSONValue(inner)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = NormalizeJSONValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = NormalizeJSONValue(inner)
		}
		return out
	case []byte:
		if len(v) > maxInlineBytes {
			return fmt.Sprintf("<%d bytes>", len(v))
		}
		return v
	default:
		return v
	}
}
