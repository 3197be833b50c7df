package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sivchari/mutir/internal/compiler"
	"github.com/sivchari/mutir/internal/ir"
)

// CCLinker links a mutant's compiled Objects together with a small
// generated C driver and executes the result, standing in for the
// native JIT/linker this spec treats as external (spec.md §1, §9). The
// driver calls the entry function and compares its return value against
// the "test.expect" attribute a ModuleLoader attaches to a recognized
// test entry point.
type CCLinker struct {
	// CC is the compiler/linker driver to invoke. Defaults to "cc".
	CC string
	// WorkDir is the parent of each per-run scratch directory. Defaults
	// to os.TempDir().
	WorkDir string
}

// NewCCLinker creates a CCLinker with its default compiler and scratch
// directory.
func NewCCLinker() *CCLinker {
	return &CCLinker{CC: "cc", WorkDir: os.TempDir()}
}

// LinkAndRun implements runner.Linker.
func (l *CCLinker) LinkAndRun(ctx context.Context, objects map[ir.ModuleHandle]*compiler.Object, entry *ir.Function) (int, bool, error) {
	cc := l.cc()

	tmp, err := os.MkdirTemp(l.workDir(), "mutir-link-*")
	if err != nil {
		return 0, false, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	objPaths, err := writeObjects(tmp, objects)
	if err != nil {
		return 0, false, err
	}

	driverPath := filepath.Join(tmp, "driver.c")
	if err := os.WriteFile(driverPath, []byte(driverSource(entry)), 0o600); err != nil {
		return 0, false, fmt.Errorf("write driver source: %w", err)
	}

	binPath := filepath.Join(tmp, "mutir_test")
	args := append([]string{"-O0", "-o", binPath, driverPath}, objPaths...)

	build := exec.Command(cc, args...)
	if out, err := build.CombinedOutput(); err != nil {
		return 0, false, fmt.Errorf("%s (link): %w\n%s", cc, err, out)
	}

	run := exec.CommandContext(ctx, binPath)

	runErr := run.Run()
	if runErr == nil {
		return 0, false, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), !exitErr.Exited(), nil
	}

	if ctx.Err() != nil {
		return 0, true, nil
	}

	return 0, false, runErr
}

func (l *CCLinker) cc() string {
	if l.CC == "" {
		return "cc"
	}

	return l.CC
}

func (l *CCLinker) workDir() string {
	if l.WorkDir == "" {
		return os.TempDir()
	}

	return l.WorkDir
}

func writeObjects(dir string, objects map[ir.ModuleHandle]*compiler.Object) ([]string, error) {
	paths := make([]string, 0, len(objects))

	for handle, obj := range objects {
		p := filepath.Join(dir, fmt.Sprintf("module-%d.o", handle))
		if err := os.WriteFile(p, obj.Code, 0o600); err != nil {
			return nil, fmt.Errorf("write object for module %d: %w", handle, err)
		}

		paths = append(paths, p)
	}

	return paths, nil
}

func driverSource(entry *ir.Function) string {
	symbol := SafeSymbol(entry.Name)

	expect := entry.Attrs["test.expect"]
	if expect == "" {
		expect = "0"
	}

	var b strings.Builder

	b.WriteString("#include <stdint.h>\n\n")
	fmt.Fprintf(&b, "extern int64_t %s(void);\n\n", symbol)
	b.WriteString("int main(void) {\n")
	fmt.Fprintf(&b, "    int64_t got = %s();\n", symbol)
	fmt.Fprintf(&b, "    int64_t want = %s;\n", expect)
	b.WriteString("    return got == want ? 0 : 1;\n}\n")

	return b.String()
}
