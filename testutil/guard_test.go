package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

type recordingT struct {
	testing.TB
	failed string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, _ ...any) { r.failed = format }

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestInternalImportForbidden(t *testing.T) {
	cases := map[string]bool{
		"mineralcatalog/internal/catalog": true,
		"mineralcatalog/pkg/domain":       false,
		"net/http":                        false,
	}
	for in, want := range cases {
		if got := InternalImportForbidden(in); got != want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", in, got, want)
		}
	}
}

func TestInfraImportForbidden(t *testing.T) {
	if !InfraImportForbidden("mineralcatalog/internal/infra/blob/s3") {
		t.Fatal("expected infra path to be forbidden")
	}
	if InfraImportForbidden("mineralcatalog/internal/blob") {
		t.Fatal("blob facade should be allowed")
	}
}

func TestNonStdlibImport(t *testing.T) {
	cases := map[string]bool{
		"fmt":                         false,
		"net/http":                    false,
		"github.com/google/uuid":      true,
		"gopkg.in/yaml.v3":            true,
		"mineralcatalog/internal/foo": true,
	}
	for in, want := range cases {
		if got := NonStdlibImport(in); got != want {
			t.Fatalf("NonStdlibImport(%q)=%v want %v", in, got, want)
		}
	}
}

func TestAssertNoDirectImportsIgnoresTestsAndDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	writeFile(t, dir, "main_test.go", "package tmp\nimport \"mineralcatalog/internal/x\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	AssertNoDirectImports(t, dir, InternalImportForbidden, "none expected")
}

func TestAssertNoDirectImportsReportsViolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package tmp\nimport _ \"mineralcatalog/internal/catalog\"\n")
	rt := &recordingT{TB: t}
	AssertNoDirectImports(rt, dir, InternalImportForbidden, "domain stays pure")
	if rt.failed == "" {
		t.Fatal("expected violation to be reported")
	}
}

func TestAssertNoDirectImportsParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.go", "package tmp\nimport (\n")
	rt := &recordingT{TB: t}
	AssertNoDirectImports(rt, dir, InternalImportForbidden, "n/a")
	if rt.failed == "" {
		t.Fatal("expected parse error to be reported")
	}
}
