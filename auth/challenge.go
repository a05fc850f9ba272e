package auth

import (
	"fmt"
	"strings"
)

// BuildBearerChallenge builds a standardized Bearer challenge header value.
// Format:
//
//	Bearer realm="<realm>", resource_metadata="...", error="...", error_description="..."
//
// Realm and resource_metadata are omitted if empty. Since Go map iteration is
// randomized, the params we care about are emitted in a fixed order (error,
// error_description, scope) followed by any remaining keys.
func BuildBearerChallenge(realm string, resourceMetadata string, params map[string]string) string {
	pieces := make([]string, 0, 2+len(params))
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	if resourceMetadata != "" {
		pieces = append(pieces, fmt.Sprintf(`resource_metadata="%s"`, esc(resourceMetadata)))
	}
	if v, ok := params["error"]; ok {
		pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(v)))
	}
	if v, ok := params["error_description"]; ok {
		pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(v)))
	}
	if v, ok := params["scope"]; ok {
		pieces = append(pieces, fmt.Sprintf(`scope="%s"`, esc(v)))
	}
	for k, v := range params {
		if k == "error" || k == "error_description" || k == "scope" {
			continue
		}
		pieces = append(pieces, fmt.Sprintf(`%s="%s"`, k, esc(v)))
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}
