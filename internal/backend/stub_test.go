package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStub(t *testing.T, source string) (string, Outcome, []string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "texput.tex"), []byte(source), 0o600))

	var lines []string
	out, err := (&StubBackend{}).Run(Invocation{
		Command:   CommandPDFLaTeX,
		Args:      EngineArgs("texput.tex"),
		Dir:       dir,
		Artifact:  "texput.pdf",
		LogWriter: func(l string) { lines = append(lines, l) },
	})
	require.NoError(t, err)
	return dir, out, lines
}

func TestStubBackendArtifact(t *testing.T) {
	dir, out, lines := runStub(t, "hello")
	assert.Equal(t, 0, out.ExitCode)

	data, err := os.ReadFile(filepath.Join(dir, "texput.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%STUB\nhello", string(data))
	assert.Contains(t, lines, "Output written on texput.pdf")
}

func TestStubBackendFail(t *testing.T) {
	dir, out, _ := runStub(t, "one\ntwo \\fail\nthree")
	assert.Equal(t, 1, out.ExitCode)
	assert.NoFileExists(t, filepath.Join(dir, "texput.pdf"))

	log, err := os.ReadFile(filepath.Join(dir, "texput.log"))
	require.NoError(t, err)
	assert.Equal(t, "This is StubTeX\n! Undefined control sequence.\nl.2 \\fail\n", string(log))
}

func TestStubBackendSilentAndNoLog(t *testing.T) {
	dir, _, _ := runStub(t, `\silent`)
	assert.FileExists(t, filepath.Join(dir, "texput.log"))
	assert.NoFileExists(t, filepath.Join(dir, "texput.pdf"))

	dir, _, _ = runStub(t, `\nolog`)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the source should remain")
}
