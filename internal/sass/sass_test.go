package sass

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bep/godartsass/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/logging"
)

type fakeCompiler struct {
	calls  int
	closed bool
}

func (f *fakeCompiler) Compile(_ context.Context, req Request) (Result, error) {
	f.calls++
	return Result{CSS: req.Source}, nil
}

func (f *fakeCompiler) Close() error {
	f.closed = true
	return nil
}

func TestLazyStartsOnce(t *testing.T) {
	fake := &fakeCompiler{}
	starts := 0
	l := NewLazy(func() (Compiler, error) {
		starts++
		return fake, nil
	})

	for i := 0; i < 3; i++ {
		res, err := l.Compile(context.Background(), Request{Path: "a.scss", Source: "a{}"})
		require.NoError(t, err)
		assert.Equal(t, "a{}", res.CSS)
	}

	assert.Equal(t, 1, starts)
	assert.Equal(t, 3, fake.calls)
	require.NoError(t, l.Close())
	assert.True(t, fake.closed)
}

func TestLazyStartFailure(t *testing.T) {
	boom := errors.New("boom")
	l := NewLazy(func() (Compiler, error) { return nil, boom })

	_, err := l.Compile(context.Background(), Request{Path: "a.scss"})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, l.Close())
}

func TestLazyCloseWithoutStart(t *testing.T) {
	l := NewLazy(func() (Compiler, error) {
		t.Fatal("compiler should not start")
		return nil, nil
	})

	require.NoError(t, l.Close())
	_, err := l.Compile(context.Background(), Request{Path: "a.scss"})
	assert.Error(t, err)
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start("assetry-no-such-sass-binary", logging.Nop())
	require.Error(t, err)

	var enhanced *asserrors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.NotEmpty(t, enhanced.Suggestions)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "scss/main.scss: Undefined variable.", (&Error{Path: "scss/main.scss", Message: "Undefined variable."}).Error())
	assert.Equal(t, "boom", (&Error{Message: "boom"}).Error())
}

func TestSyntaxFor(t *testing.T) {
	assert.Equal(t, godartsass.SourceSyntaxSCSS, syntaxFor("main.scss"))
	assert.Equal(t, godartsass.SourceSyntaxSASS, syntaxFor("legacy.sass"))
	assert.Equal(t, godartsass.SourceSyntaxCSS, syntaxFor("reset.css"))
}

func TestDartCompile(t *testing.T) {
	if _, err := exec.LookPath("sass"); err != nil {
		t.Skip("dart sass not installed")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_vars.scss"), []byte("$accent: #c00;\n"), 0o644))
	main := filepath.Join(dir, "main.scss")
	require.NoError(t, os.WriteFile(main, []byte("@use 'vars';\n.a { .b { color: vars.$accent; } }\n"), 0o644))

	d, err := Start("sass", logging.Nop())
	require.NoError(t, err)
	defer d.Close()

	res, err := d.Compile(context.Background(), Request{Path: main})
	require.NoError(t, err)
	assert.Contains(t, res.CSS, ".a .b")
	assert.Contains(t, res.CSS, "#c00")

	_, err = d.Compile(context.Background(), Request{Path: main, Source: ".a { color: $missing; }"})
	var sassErr *Error
	require.True(t, errors.As(err, &sassErr))
	assert.Contains(t, sassErr.Message, "Undefined variable")
}
