package intake

import (
	"path"
	"strings"
)

var testDirNames = map[string]struct{}{
	"test": {}, "tests": {}, "__tests__": {}, "__mocks__": {},
	"spec": {}, "fixtures": {}, "__fixtures__": {}, "testdata": {},
}

// IsTestPath reports whether a slash-separated path relative to the scan root
// looks like test code: it sits under a test or fixture directory, or its
// basename follows a common test naming convention.
func IsTestPath(rel string) bool {
	rel = strings.ToLower(strings.TrimPrefix(rel, "./"))
	dir, base := path.Split(rel)
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		if _, ok := testDirNames[seg]; ok {
			return true
		}
	}
	return isTestFileName(base)
}

func isTestFileName(base string) bool {
	switch {
	case strings.Contains(base, ".test."), strings.Contains(base, ".spec."):
		return true
	case strings.HasSuffix(base, "_test.go"):
		return true
	case strings.HasSuffix(base, ".py"):
		return base == "conftest.py" || strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py")
	}
	return false
}
