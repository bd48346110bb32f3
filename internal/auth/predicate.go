package auth

// CanUse decides whether a caller may use an operation with the given
// requirements. It is the single authorisation predicate in the system:
// HTTP endpoint gating, capability projection, and WebSocket admission all
// call it with identical semantics.
//
// Rules, in order:
//   - an operation requiring authentication is unusable by anonymous callers
//   - when required roles are declared, the caller must hold every one
//   - otherwise the operation is usable
func CanUse(requiresAuth bool, requiredRoles []string, authenticated bool, callerRoles []string) bool {
	if requiresAuth && !authenticated {
		return false
	}
	for _, required := range requiredRoles {
		if !hasRole(callerRoles, required) {
			return false
		}
	}
	return true
}

// CanUseIdentity is CanUse applied to a request identity, which may be nil
// for anonymous callers.
func CanUseIdentity(requiresAuth bool, requiredRoles []string, id *Identity) bool {
	if id == nil {
		return CanUse(requiresAuth, requiredRoles, false, nil)
	}
	return CanUse(requiresAuth, requiredRoles, true, id.Roles())
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
