package entity

import "strings"

// containsFold reports whether any string in list contains substr,
// case-insensitively.
func containsFold(list []string, substr string) bool {
	substr = strings.ToLower(substr)
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), substr) {
			return true
		}
	}
	return false
}
