package report

// First returns the first issue of an ordered sequence, or false when the
// sequence is empty. Selection is stateless: repeated calls over the same
// report return the same issue, and nothing records whether a previously
// returned issue was ever fixed. The fix-verify loop relies on the caller
// re-running the producing tool so the report itself advances.
func First[T any](issues []T) (T, bool) {
	if len(issues) == 0 {
		var zero T
		return zero, false
	}
	return issues[0], true
}
