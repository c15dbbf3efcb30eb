package defaults_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/ui"
)

func TestVersionIsSemver(t *testing.T) {
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9]+)?$`)
	if !semver.MatchString(defaults.Version) {
		t.Errorf("Version %q is not semver", defaults.Version)
	}
	// ui.Version is a var so ldflags can stamp release builds, which
	// means the compiler cannot keep the two in sync for us.
	if ui.Version != defaults.Version {
		t.Errorf("ui.Version %q drifted from defaults.Version %q", ui.Version, defaults.Version)
	}
}

func TestCWEMappingResolves(t *testing.T) {
	for category, code := range defaults.CWECategoryMapping {
		if _, ok := defaults.CWECatalog[code]; !ok {
			t.Errorf("category %q maps to %q, which is not in the catalog", category, code)
		}
	}

	for code, entry := range defaults.CWECatalog {
		if entry.Code != code {
			t.Errorf("catalog key %q holds entry coded %q", code, entry.Code)
		}
		if !strings.HasPrefix(entry.URL, "https://cwe.mitre.org/") {
			t.Errorf("%s links to %q instead of cwe.mitre.org", code, entry.URL)
		}
		if entry.FullName != entry.Code+" - "+entry.Name {
			t.Errorf("%s FullName %q is not composed from code and name", code, entry.FullName)
		}
	}

	if got := defaults.CWEForCategory("no-such-category"); got.Code != "CWE-200" {
		t.Errorf("unknown category resolved to %q, want the CWE-200 fallback", got.Code)
	}
}

// The remaining tests enforce the package's contract on the rest of
// the tree: tunables are referenced by constant, never retyped as
// literals at the use site.

func TestNoLiteralConcurrency(t *testing.T) {
	reportLiterals(t, literalFieldScan(t, "Concurrency", intBetween(3, 200)), "defaults.Concurrency*")
}

func TestNoLiteralRetries(t *testing.T) {
	hits := literalFieldScan(t, "Retries", intBetween(2, 20))
	hits = append(hits, literalFieldScan(t, "MaxRetries", intBetween(2, 20))...)
	reportLiterals(t, hits, "defaults.Retry*")
}

func TestNoLiteralMaxRedirects(t *testing.T) {
	reportLiterals(t, literalFieldScan(t, "MaxRedirects", intBetween(2, 50)), "defaults.MaxRedirects")
}

func TestNoLiteralUserAgent(t *testing.T) {
	// pkg/browser legitimately spells out full UA strings; it is where
	// the identities live.
	hits := literalFieldScan(t, "UserAgent", stringPrefixed("Mozilla/5.0"), "browser/profiles.go")
	reportLiterals(t, hits, "defaults.UA*")
}

func TestNoLiteralVersionStrings(t *testing.T) {
	versionRe := regexp.MustCompile(`Version\s*[:=]\s*"(\d+\.\d+\.\d+)"`)
	var hits []string
	walkSource(t, func(path string, rel string) {
		// banner.go's Version var exists for ldflags stamping; the
		// SARIF schema version is pinned at 2.1.0 by the standard;
		// plugin manifests version themselves.
		if strings.Contains(rel, "banner.go") ||
			strings.Contains(rel, "sarif.go") ||
			strings.Contains(rel, "policy.go") ||
			strings.Contains(rel, "plugin/") {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		for i, line := range strings.Split(string(data), "\n") {
			if m := versionRe.FindStringSubmatch(line); m != nil {
				hits = append(hits, rel+":"+strconv.Itoa(i+1)+": Version = "+strconv.Quote(m[1]))
			}
		}
	})
	reportLiterals(t, hits, "defaults.Version")
}

func reportLiterals(t *testing.T, hits []string, want string) {
	t.Helper()
	for _, h := range hits {
		t.Errorf("%s (use %s)", h, want)
	}
}

// litMatch decides whether a literal assigned to the watched field is
// a violation, and renders it for the report.
type litMatch func(lit *ast.BasicLit) (string, bool)

func intBetween(lo, hi int) litMatch {
	return func(lit *ast.BasicLit) (string, bool) {
		if lit.Kind != token.INT {
			return "", false
		}
		v, err := strconv.Atoi(lit.Value)
		if err != nil || v < lo || v > hi {
			return "", false
		}
		return lit.Value, true
	}
}

func stringPrefixed(prefix string) litMatch {
	return func(lit *ast.BasicLit) (string, bool) {
		if lit.Kind != token.STRING {
			return "", false
		}
		if !strings.HasPrefix(strings.Trim(lit.Value, `"`), prefix) {
			return "", false
		}
		return lit.Value, true
	}
}

// literalFieldScan parses every non-test source file and reports
// literals assigned to the named struct field or selector, either in a
// composite literal or an assignment.
func literalFieldScan(t *testing.T, field string, match litMatch, extraSkips ...string) []string {
	t.Helper()

	var hits []string
	record := func(fset *token.FileSet, rel string, lit *ast.BasicLit) {
		if rendered, ok := match(lit); ok {
			pos := fset.Position(lit.Pos())
			hits = append(hits, rel+":"+strconv.Itoa(pos.Line)+": "+field+" = "+rendered)
		}
	}

	walkSource(t, func(path string, rel string) {
		if strings.Contains(rel, "defaults.go") {
			return
		}
		for _, skip := range extraSkips {
			if strings.Contains(rel, skip) {
				return
			}
		}

		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			return
		}

		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.KeyValueExpr:
				if key, ok := node.Key.(*ast.Ident); ok && key.Name == field {
					if lit, ok := node.Value.(*ast.BasicLit); ok {
						record(fset, rel, lit)
					}
				}
			case *ast.AssignStmt:
				for i, lhs := range node.Lhs {
					sel, ok := lhs.(*ast.SelectorExpr)
					if !ok || sel.Sel.Name != field || i >= len(node.Rhs) {
						continue
					}
					if lit, ok := node.Rhs[i].(*ast.BasicLit); ok {
						record(fset, rel, lit)
					}
				}
			}
			return true
		})
	})

	return hits
}

// walkSource calls fn for every non-test .go file under pkg/ and cmd/.
func walkSource(t *testing.T, fn func(path, rel string)) {
	t.Helper()
	root := moduleRoot(t)

	for _, dir := range []string{"pkg", "cmd"} {
		base := filepath.Join(root, dir)
		if _, err := os.Stat(base); err != nil {
			continue
		}
		err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			fn(path, rel)
			return nil
		})
		if err != nil {
			t.Fatalf("walking %s: %v", dir, err)
		}
	}
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("no go.mod above the test's working directory")
		}
		dir = parent
	}
}
