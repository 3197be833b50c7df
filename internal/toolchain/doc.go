// Package toolchain provides the default native-toolchain collaborators
// that cmd/mutir wires into pkg/mutir.Collaborators: a store.ModuleLoader,
// a compiler.CodeGenerator, and a runner.Linker.
//
// spec.md §1 and §9 treat bitcode parsing and native code generation as
// an external I/O boundary this core never owns. Parsing real LLVM
// bitcode would require cgo bindings to the LLVM C API, which is out of
// scope for this module (see DESIGN.md); instead these adapters speak
// mutir's own plain-text module interchange format (TextLoader) and
// shell out to the system C compiler for native object generation and
// linking (CCGenerator, CCLinker), in the same spirit as sivchari/gomu's
// internal/execution.Engine driving "go build"/"go test" as
// subprocesses rather than reimplementing the Go toolchain.
package toolchain

// SafeSymbol renames an IR function name that would collide with a
// reserved C symbol when lowered to C source. "main" marks a test entry
// point in this IR (Function.Attrs["test.kind"] == "main"), not the C
// process entry point CCLinker's generated driver defines, so it cannot
// be emitted verbatim.
func SafeSymbol(name string) string {
	if name == "main" {
		return "__mutir_entry_main"
	}

	return name
}
