package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite/internal/errors"
)

func TestRegister_SingleActiveInvariant(t *testing.T) {
	dataDir := t.TempDir()
	r, err := Open(dataDir)
	require.NoError(t, err)

	rootA := t.TempDir()
	rootB := t.TempDir()

	a, err := r.Register("proj-a", rootA)
	require.NoError(t, err)
	assert.True(t, a.Active)
	assert.Len(t, a.ID, 8)

	b, err := r.Register("proj-b", rootB)
	require.NoError(t, err)
	assert.True(t, b.Active)

	active := r.Active()
	require.NotNil(t, active)
	assert.Equal(t, "proj-b", active.Name)

	activeCount := 0
	for _, p := range r.List() {
		if p.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	dataDir := t.TempDir()
	root := t.TempDir()

	r, err := Open(dataDir)
	require.NoError(t, err)
	_, err = r.Register("demo", root)
	require.NoError(t, err)

	reopened, err := Open(dataDir)
	require.NoError(t, err)
	p := reopened.Get("demo")
	require.NotNil(t, p)
	assert.Equal(t, "demo", p.Name)
	assert.True(t, p.Active)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("my-project_2"))
	for _, bad := range []string{"", "has space", "semi;colon", "dotted.name",
		"0123456789012345678901234567890123456789012345678901234567890123X"} {
		err := ValidateName(bad)
		require.Error(t, err, "name %q", bad)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my-repo", SanitizeName("my-repo"))
	assert.Equal(t, "my-repo-2024", SanitizeName("my repo 2024"))
	assert.Equal(t, "a-b", SanitizeName("a.b"))
	assert.Equal(t, "project", SanitizeName(""))
}

func TestValidateRoot_RejectsBadPaths(t *testing.T) {
	_, err := ValidateRoot("")
	assert.Error(t, err)

	_, err = ValidateRoot("/tmp; rm -rf /")
	assert.Error(t, err)

	_, err = ValidateRoot(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	r, err := Open(t.TempDir())
	require.NoError(t, err)

	// No active project: auto resolves to global.
	name, err := r.Resolve(Auto)
	require.NoError(t, err)
	assert.Equal(t, Global, name)

	root := t.TempDir()
	_, err = r.Register("demo", root)
	require.NoError(t, err)

	name, err = r.Resolve(Auto)
	require.NoError(t, err)
	assert.Equal(t, "demo", name)

	name, err = r.Resolve("explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", name)

	_, err = r.Resolve("bad name!")
	assert.Error(t, err)
}

func TestDelete_RemovesPartitions(t *testing.T) {
	dataDir := t.TempDir()
	r, err := Open(dataDir)
	require.NoError(t, err)
	_, err = r.Register("demo", t.TempDir())
	require.NoError(t, err)

	paths := NewPaths(dataDir)
	require.NoError(t, os.WriteFile(paths.Chunks("demo"), []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(paths.IndexState("demo"), []byte("{}"), 0o644))

	require.NoError(t, r.Delete("demo"))
	assert.Nil(t, r.Get("demo"))

	_, err = os.Stat(paths.Chunks("demo"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(paths.IndexState("demo"))
	assert.True(t, os.IsNotExist(err))
}

func TestProjectID_StableAndDistinct(t *testing.T) {
	a := projectID("name", "/root/a")
	b := projectID("name", "/root/b")
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, projectID("name", "/root/a"))
}
