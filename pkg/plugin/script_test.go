package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshound/jshound/pkg/finding"
)

func TestLoadScriptProvider(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "corp-rules.tengo")
	err := os.WriteFile(scriptPath, []byte(`
name := "corp-rules"
version := "2.1.0"
patterns := [
    {id: "corp-token", pattern: "ctk_[a-z0-9]{16}", severity: "high", description: "Corp service token"},
    {id: "corp-endpoint", pattern: "https://internal\\.corp\\.example", severity: "low"}
]
`), 0644)
	require.NoError(t, err)

	p, err := LoadScriptProvider(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, "corp-rules", p.Name())
	assert.Equal(t, "2.1.0", p.Version())

	rules := p.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "corp-token", rules[0].ID)
	assert.Equal(t, finding.High, rules[0].Severity)
	assert.Equal(t, "Corp service token", rules[0].Description)
	assert.True(t, rules[0].Pattern.MatchString("CTK_ABCDEFGH12345678"))
	assert.Equal(t, finding.Low, rules[1].Severity)
	assert.True(t, rules[1].Pattern.MatchString("https://internal.corp.example/login"))
}

func TestLoadScriptProvider_ComputedPatterns(t *testing.T) {
	// Scripts can build their pattern list with the sandboxed stdlib.
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "built.tengo")
	err := os.WriteFile(scriptPath, []byte(`
text := import("text")
name := "built"
prefix := text.join(["env", "secret"], "_")
patterns := [
    {id: "env-secret", pattern: prefix + "_[a-z0-9]{10}", severity: "medium"}
]
`), 0644)
	require.NoError(t, err)

	p, err := LoadScriptProvider(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", p.Version())

	rules := p.Rules()
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Pattern.MatchString("env_secret_abc1234567"))
}

func TestLoadScriptProvider_MissingName(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "bad.tengo")
	err := os.WriteFile(scriptPath, []byte(`
patterns := [{id: "x", pattern: "abc", severity: "low"}]
`), 0644)
	require.NoError(t, err)

	_, err = LoadScriptProvider(scriptPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'name'")
}

func TestLoadScriptProvider_MissingPatterns(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "bad.tengo")
	err := os.WriteFile(scriptPath, []byte(`name := "no-patterns"`), 0644)
	require.NoError(t, err)

	_, err = LoadScriptProvider(scriptPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'patterns'")
}

func TestLoadScriptProvider_IncompleteEntry(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "bad.tengo")
	err := os.WriteFile(scriptPath, []byte(`
name := "incomplete"
patterns := [{id: "x", pattern: "abc"}]
`), 0644)
	require.NoError(t, err)

	_, err = LoadScriptProvider(scriptPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
}

func TestLoadScriptProvider_BadSeverity(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "bad.tengo")
	err := os.WriteFile(scriptPath, []byte(`
name := "bad-sev"
patterns := [{id: "x", pattern: "abc", severity: "extreme"}]
`), 0644)
	require.NoError(t, err)

	_, err = LoadScriptProvider(scriptPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")
}

func TestLoadScriptProvider_InvalidPattern(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "bad.tengo")
	err := os.WriteFile(scriptPath, []byte(`
name := "bad-re"
patterns := [{id: "x", pattern: "([", severity: "low"}]
`), 0644)
	require.NoError(t, err)

	_, err = LoadScriptProvider(scriptPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestLoadScriptProvider_Sandbox(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "evil.tengo")
	err := os.WriteFile(scriptPath, []byte(`
os := import("os")
name := "evil"
patterns := [{id: "x", pattern: "abc", severity: "low"}]
`), 0644)
	require.NoError(t, err)

	_, err = LoadScriptProvider(scriptPath)
	assert.Error(t, err) // os module not in safe modules
}

func TestLoadScriptProvider_RejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.tengo")

	// Just over the 1MB limit.
	data := make([]byte, 1100*1024)
	for i := range data {
		data[i] = '/'
	}
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := LoadScriptProvider(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadScriptDir(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		script := fmt.Sprintf(`
name := "provider%d"
patterns := [{id: "rule%d", pattern: "p%d_[0-9]+", severity: "low"}]
`, i, i, i)
		err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("p%d.tengo", i)), []byte(script), 0644)
		require.NoError(t, err)
	}

	err := os.WriteFile(filepath.Join(dir, "broken.tengo"), []byte(`broken syntax {{{{`), 0644)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not a script"), 0644)
	require.NoError(t, err)

	providers, errs := LoadScriptDir(dir)
	assert.Len(t, providers, 2)
	assert.Len(t, errs, 1) // broken.tengo
}

func TestLoadScriptDir_NonexistentDir(t *testing.T) {
	providers, errs := LoadScriptDir("/nonexistent/path")
	assert.Nil(t, providers)
	assert.Len(t, errs, 1)
}

func TestLoadScriptDir_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	providers, errs := LoadScriptDir(dir)
	assert.Nil(t, providers)
	assert.Nil(t, errs)
}

func TestScriptProviderInRegistry(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "extra.tengo")
	err := os.WriteFile(scriptPath, []byte(`
name := "extra"
patterns := [{id: "extra-token", pattern: "xtk_[a-f0-9]{8}", severity: "high"}]
`), 0644)
	require.NoError(t, err)

	p, err := LoadScriptProvider(scriptPath)
	require.NoError(t, err)

	r := NewDefaultRegistry()
	require.NoError(t, r.Register(p))

	rules, err := r.Load()
	require.NoError(t, err)

	var found bool
	for _, rule := range rules {
		if rule.ID == "extra-token" {
			found = true
			assert.Equal(t, "extra", rule.Plugin)
		}
	}
	assert.True(t, found, "script rule missing from frozen set")
}
