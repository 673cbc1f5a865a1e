package getsafe

func String(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// FirstString returns the first non-empty string among keys.
func FirstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := String(payload, key); len(s) > 0 {
			return s
		}
	}
	return ""
}
