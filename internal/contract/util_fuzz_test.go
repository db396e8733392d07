package contract

import (
	"strings"
	"testing"
)

// FuzzNormalizeRepository checks that any accepted identifier is already normalized.
func FuzzNormalizeRepository(f *testing.F) {
	seeds := []string{
		"owner/repo",
		"https://github.com/owner/repo.git",
		"git@github.com:owner/repo.git",
		"https://github.com/owner/",
		"",
		"a/b/c",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		out, err := NormalizeRepository(input)
		if err != nil {
			return
		}
		if strings.Count(out, "/") != 1 {
			t.Fatalf("normalized %q to %q", input, out)
		}
		again, err := NormalizeRepository(out)
		if err != nil || again != out {
			t.Fatalf("normalizing %q again gave %q, %v", out, again, err)
		}
	})
}
