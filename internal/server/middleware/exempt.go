package middleware

// exemptPaths lists the paths that bypass the deception, version, and token
// gates. Only the literal root path is exempt; the management console probes
// it to discover the agent before authenticating.
var exemptPaths = map[string]struct{}{
	"/": {},
}

func isExempt(path string) bool {
	_, ok := exemptPaths[path]
	return ok
}
