package host

// ResetInstalled clears the published table between tests.
func ResetInstalled() {
	installed.Store(nil)
}
