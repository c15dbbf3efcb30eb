package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/iohelper"
)

// safeModules are the only Tengo stdlib modules available to rule
// scripts. No file I/O, no network, no OS access.
var safeModules = stdlib.GetModuleMap("text", "fmt", "math", "times")

// ScriptProvider is a rule set declared by a .tengo script. The script
// must define name (string) and patterns (array of maps with id,
// pattern, severity, and optional description); version is optional.
// Scripts run once at load in a sandboxed VM; nothing from a script
// executes during detection itself.
type ScriptProvider struct {
	name    string
	version string
	rules   []Rule
}

func (p *ScriptProvider) Name() string    { return p.name }
func (p *ScriptProvider) Version() string { return p.version }

func (p *ScriptProvider) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// LoadScriptProvider evaluates a .tengo file and extracts its rule
// declarations.
func LoadScriptProvider(path string) (*ScriptProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule script %s: %w", path, err)
	}
	if int64(len(data)) > iohelper.DefaultMaxBodySize {
		return nil, fmt.Errorf("rule script %s: too large (%d bytes)", path, len(data))
	}

	script := tengo.NewScript(data)
	script.SetImports(safeModules)
	script.SetMaxAllocs(10_000_000)

	compiled, err := script.Run()
	if err != nil {
		return nil, fmt.Errorf("compile rule script %s: %w", path, err)
	}

	nameVar := compiled.Get("name")
	if nameVar.IsUndefined() {
		return nil, fmt.Errorf("rule script %s: missing 'name' variable", path)
	}

	version := "1.0.0"
	if v := compiled.Get("version"); !v.IsUndefined() {
		version = v.String()
	}

	patternsVar := compiled.Get("patterns")
	if patternsVar.IsUndefined() {
		return nil, fmt.Errorf("rule script %s: missing 'patterns' array", path)
	}
	arr, ok := patternsVar.Value().([]interface{})
	if !ok {
		return nil, fmt.Errorf("rule script %s: 'patterns' must be an array", path)
	}

	rules := make([]Rule, 0, len(arr))
	for i, raw := range arr {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("rule script %s: patterns[%d] must be a map", path, i)
		}

		id := stringField(entry, "id")
		expr := stringField(entry, "pattern")
		sevStr := stringField(entry, "severity")
		if id == "" || expr == "" || sevStr == "" {
			return nil, fmt.Errorf("rule script %s: patterns[%d]: id, pattern, and severity are required", path, i)
		}

		sev, err := finding.ParseSeverity(sevStr)
		if err != nil {
			return nil, fmt.Errorf("rule script %s: patterns[%d]: %w", path, i, err)
		}
		re, err := compilePattern(expr)
		if err != nil {
			return nil, fmt.Errorf("rule script %s: patterns[%d]: invalid pattern: %w", path, i, err)
		}

		rules = append(rules, Rule{
			ID:          id,
			Pattern:     re,
			Severity:    sev,
			Description: stringField(entry, "description"),
		})
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule script %s: no patterns defined", path)
	}

	return &ScriptProvider{name: nameVar.String(), version: version, rules: rules}, nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// LoadScriptDir loads all .tengo files from a directory. Files that
// fail to load are returned as errors but don't prevent loading
// others.
func LoadScriptDir(dir string) ([]*ScriptProvider, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read plugin dir %s: %w", dir, err)}
	}

	var providers []*ScriptProvider
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tengo") {
			continue
		}
		p, err := LoadScriptProvider(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}
	return providers, errs
}
