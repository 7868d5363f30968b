package converter

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// Golden archives hold an input.d.ts file plus one file per declaration
// with its expected definition. The archive comment lists the generated set
// ("generated: A B") and optionally the expected deferred names of the last
// conversion ("deferred: C").
func TestConvert_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no golden archives found")
	}

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatal(err)
			}

			var generated, deferred []string
			for _, line := range strings.Split(string(ar.Comment), "\n") {
				if rest, ok := strings.CutPrefix(line, "generated:"); ok {
					generated = strings.Fields(rest)
				}
				if rest, ok := strings.CutPrefix(line, "deferred:"); ok {
					deferred = strings.Fields(rest)
				}
			}

			var input string
			var cases []txtar.File
			for _, f := range ar.Files {
				if f.Name == "input.d.ts" {
					input = string(f.Data)
					continue
				}
				cases = append(cases, f)
			}

			c, diags := newConverter(t, input, generated...)
			for _, f := range cases {
				got := c.ConvertDeclaration(f.Name)
				want := strings.TrimSpace(string(f.Data))
				if got != want {
					t.Errorf("%s mismatch\n--- want\n%s\n--- got\n%s", f.Name, want, got)
				}
			}
			if deferred != nil && !slices.Equal(c.Context().Deferred(), deferred) {
				t.Errorf("expected deferred %v, got %v", deferred, c.Context().Deferred())
			}
			if diags.HasErrors() {
				t.Errorf("unexpected errors:\n%s", diags.FormatAll())
			}
		})
	}
}
