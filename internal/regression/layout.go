package regression

import (
	"path"
	"strings"
)

const (
	suffixCurrent  = "~cur"
	suffixStandard = "~ref"
	suffixDiff     = "~diff"
)

// layout names the storage keys of one check: the baseline under the image directory and the
// report files next to each other under the report directory.
type layout struct {
	dir  string
	file string
}

func newLayout(name string, suite string, test string, fileSuffix string) layout {
	dir := name
	if suite != "" {
		dir = path.Join(normalizeSuite(suite), test, name)
	}
	return layout{
		dir:  dir,
		file: fileSuffix,
	}
}

func (l layout) baseline() string {
	return path.Join(l.dir, l.file+".png")
}

func (l layout) report(suffix string) string {
	return path.Join(l.dir, l.file+suffix+".png")
}

// normalizeSuite stores TestRegression suites under their Regression name.
func normalizeSuite(suite string) string {
	return strings.ReplaceAll(suite, "TestRegression", "Regression")
}
