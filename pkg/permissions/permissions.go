// Package permissions checks a user's granted permissions against a required
// permission string, with wildcard support.
//
// Permission format:
//   - "*" - full access
//   - "inventory.*" - all actions on a resource
//   - "inventory.write" - a specific action
package permissions

import (
	"strings"
)

// HasPermission reports whether the granted permissions include the required one.
func HasPermission(granted []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range granted {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission reports whether the granted permissions include any of the
// required ones.
func HasAnyPermission(granted []string, required []string) bool {
	for _, req := range required {
		if HasPermission(granted, req) {
			return true
		}
	}
	return false
}
