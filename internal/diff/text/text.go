package text

type DiffResult struct {
	// Diff lists every line prefixed with "  " when kept, "- " when only expected and "+ " when only actual.
	Diff       string
	Changed    int
	DiffAmount float64
}

type Differ interface {
	Calculate(expected string, actual string) *DiffResult
}
