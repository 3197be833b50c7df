package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/mutir/internal/ir"
)

type fakeGenerator struct {
	code []byte
	err  error
}

func (f *fakeGenerator) Generate(*ir.Module) ([]byte, error) {
	return f.code, f.err
}

func TestCompile_ReturnsObject(t *testing.T) {
	c := New(&fakeGenerator{code: []byte("native-object")})

	obj, err := c.Compile(&ir.Module{Handle: 3})
	require.NoError(t, err)
	assert.Equal(t, ir.ModuleHandle(3), obj.Module)
	assert.Equal(t, []byte("native-object"), obj.Code)
}

func TestCompile_WrapsGeneratorError(t *testing.T) {
	c := New(&fakeGenerator{err: errors.New("bad ir")})

	_, err := c.Compile(&ir.Module{Handle: 1})
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, ir.ModuleHandle(1), compileErr.Module)
}

func TestCompile_NeverCaches(t *testing.T) {
	gen := &fakeGenerator{code: []byte("v1")}
	c := New(gen)

	first, err := c.Compile(&ir.Module{Handle: 0})
	require.NoError(t, err)

	gen.code = []byte("v2")

	second, err := c.Compile(&ir.Module{Handle: 0})
	require.NoError(t, err)

	assert.NotEqual(t, first.Code, second.Code)
}
