package privy

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Decode parses an upstream body as a JSON object. Non-object bodies are
// returned under a "raw" key so callers can still relay them.
func Decode(body []byte) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil && payload != nil {
		return payload
	}
	if len(body) == 0 {
		return map[string]any{}
	}
	return map[string]any{"raw": string(body)}
}

// UserObject returns payload.user when present, otherwise the payload itself.
func UserObject(payload map[string]any) map[string]any {
	if user, ok := payload["user"].(map[string]any); ok {
		return user
	}
	return payload
}

// ExtractUserID finds the provider user id in an authenticate response,
// checking user.id, then userId, then id.
func ExtractUserID(payload map[string]any) string {
	if user, ok := payload["user"].(map[string]any); ok {
		if id := stringValue(user["id"]); id != "" {
			return id
		}
	}
	if id := stringValue(payload["userId"]); id != "" {
		return id
	}
	return stringValue(payload["id"])
}

func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
