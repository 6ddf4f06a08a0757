package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunCleanScriptExitsZero(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ok.sl", `spawn_process("A", 1, 0, [(Cpu, 3)])`)

	code := run([]string{path})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if _, err := os.Stat(path + ".met"); err != nil {
		t.Fatalf("expected a metrics file to be written: %v", err)
	}
}

func TestRunMissingFileExitsOne(t *testing.T) {
	code := run([]string{filepath.Join(t.TempDir(), "does_not_exist.sl")})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunParseErrorExitsOne(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "bad.sl", `spawn_process("A", 1, 0`)

	code := run([]string{path})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunRequiresExactlyOneArg(t *testing.T) {
	if code := run([]string{}); code != 1 {
		t.Fatalf("exit code = %d, want 1 for missing script arg", code)
	}
}
