package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planshift/planshift/pkg/plan"
	"github.com/planshift/planshift/pkg/planio"
)

const samplePlan = `{
	"kind": "project",
	"input": {"kind": "scan", "table": ["t"]},
	"projections": [{
		"expr": "call", "type": {"tag": "DATE"},
		"op": {"name": "to_date", "arity": 1},
		"operands": [{"expr": "field", "type": {"tag": "VARCHAR"}, "ordinal": 0}]
	}]
}`

func runCLI(t *testing.T, args []string, stdin string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, []string{"--version"}, "")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "planshift version")
}

func TestRunHelp(t *testing.T) {
	code, stdout, _ := runCLI(t, []string{"--help"}, "")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "Exit Codes:")
}

func TestRunUnknownFlag(t *testing.T) {
	code, _, _ := runCLI(t, []string{"--no-such-flag"}, "")
	assert.Equal(t, 2, code)
}

func TestRunListOperators(t *testing.T) {
	code, stdout, _ := runCLI(t, []string{"--list-operators"}, "")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "to_date/1 -> date(cast(x AS timestamp))")
	assert.Contains(t, stdout, "rand/0 -> random()")
}

func TestRunConvertStdinToStdout(t *testing.T) {
	code, stdout, stderr := runCLI(t, []string{"--log-level", "off"}, samplePlan)
	require.Equal(t, 0, code, stderr)

	decoded, err := planio.UnmarshalPlan([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "Project[date(CAST($0 AS TIMESTAMP))]\n  Scan(t)\n", plan.Format(decoded))
}

func TestRunAvoidToDateUDF(t *testing.T) {
	code, stdout, stderr := runCLI(t, []string{"--avoid-to-date-udf", "--log-level", "off"}, samplePlan)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"to_date"`)
}

func TestRunRewriteFlagRepeatable(t *testing.T) {
	code, stdout, stderr := runCLI(t,
		[]string{"--flag", "avoid_transform_to_date_udf", "--flag", "other=false", "--log-level", "off"},
		samplePlan)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"to_date"`)
}

func TestRunConvertFiles(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.json")
	outPath := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(inPath, []byte(samplePlan), 0o644))

	code, _, stderr := runCLI(t, []string{"-i", inPath, "-o", outPath, "--log-level", "off"}, "")
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	decoded, err := planio.UnmarshalPlan(data)
	require.NoError(t, err)
	assert.Equal(t, "Project[date(CAST($0 AS TIMESTAMP))]\n  Scan(t)\n", plan.Format(decoded))
}

func TestRunConvertDirectory(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(inDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "a.json"), []byte(samplePlan), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "nested", "b.json"), []byte(samplePlan), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "skip.txt"), []byte("not a plan"), 0o644))

	code, stdout, stderr := runCLI(t,
		[]string{"-d", inDir, "-O", outDir, "--log-level", "off"}, "")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "converted 2 plan(s), 0 failure(s)")

	for _, rel := range []string{"a.json", filepath.Join("nested", "b.json")} {
		data, err := os.ReadFile(filepath.Join(outDir, rel))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"name": "date"`)
	}
}

func TestRunConvertDirectoryCountsFailures(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "bad.json"), []byte(`{"kind": "explode"}`), 0o644))

	code, stdout, _ := runCLI(t, []string{"-d", inDir, "-O", outDir, "--log-level", "off"}, "")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "1 failure(s)")
}

func TestRunBadPlanFails(t *testing.T) {
	code, _, stderr := runCLI(t, []string{"--log-level", "off"}, `{"kind": "explode"}`)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "explode")
}

func TestRunDirectoryNeedsOutputDir(t *testing.T) {
	code, _, stderr := runCLI(t, []string{"-d", t.TempDir()}, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--output-dir")
}

func TestRunWatchNeedsInputDir(t *testing.T) {
	code, _, stderr := runCLI(t, []string{"--watch"}, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--input-dir")
}

func TestRunBadLogLevel(t *testing.T) {
	code, _, stderr := runCLI(t, []string{"--log-level", "loud"}, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "loud")
}
