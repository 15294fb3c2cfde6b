package leaderboard

import "regexp"

// placeholder matches template slots such as [FIRST_NAME] or [COMPANY NAME].
var placeholder = regexp.MustCompile(`\[([A-Z_\s]+)\]`)

// ExtractVariables returns the distinct placeholder names in content in
// first-seen order.  The result is never nil.
func ExtractVariables(content string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, m := range placeholder.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
