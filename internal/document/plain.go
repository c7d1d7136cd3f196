package document

// Plain converts v to plain Go values for YAML or JSON rendering.
// Compounds become maps, so field order is not kept.
func Plain(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Double:
		return float64(val)
	case Bytes:
		return []byte(val)
	case IntArray:
		return []int32(val)
	case List:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Plain(item)
		}
		return out
	case Compound:
		out := make(map[string]any, len(val))
		for _, f := range val {
			out[f.Name] = Plain(f.Value)
		}
		return out
	default:
		return nil
	}
}
