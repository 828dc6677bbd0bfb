package section

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjcopy writes a shell script standing in for objcopy. The script
// logs its arguments to <dir>/args.
func fakeObjcopy(t *testing.T, body string) (tool, argsLog string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	dir := t.TempDir()
	argsLog = filepath.Join(dir, "args")
	tool = filepath.Join(dir, "objcopy")
	script := "#!/bin/sh\necho \"$@\" > '" + argsLog + "'\n" + body
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))
	return tool, argsLog
}

func writeBinary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func readArgs(t *testing.T, argsLog string) []string {
	t.Helper()
	data, err := os.ReadFile(argsLog)
	require.NoError(t, err)
	return strings.Fields(string(data))
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	file := writeBinary(t, "x")

	assert.NoError(t, CheckFile(file))
	assert.ErrorIs(t, CheckFile(filepath.Join(dir, "missing")), ErrFileNotFound)
	assert.ErrorIs(t, CheckFile(dir), ErrNotAFile)
}

func TestReadSection_ELF(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is ELF only on linux")
	}
	self, err := os.Executable()
	require.NoError(t, err)

	b := NewBinutils(WithObjcopy("/nonexistent/objcopy"))

	data, err := b.ReadSection(context.Background(), self, ".text")
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = b.ReadSection(context.Background(), self, ".esstra-missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestReadSection_MissingFile(t *testing.T) {
	b := NewBinutils()
	_, err := b.ReadSection(context.Background(), filepath.Join(t.TempDir(), "nope"), DefaultName)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestReadSection_FallsBackToObjcopy(t *testing.T) {
	tool, argsLog := fakeObjcopy(t, `spec="$2"
printf 'Headers: {}' > "${spec#*=}"
`)
	bin := writeBinary(t, "MZ not an elf file at all")

	b := NewBinutils(WithObjcopy(tool))
	data, err := b.ReadSection(context.Background(), bin, DefaultName)
	require.NoError(t, err)
	assert.Equal(t, "Headers: {}", string(data))

	args := readArgs(t, argsLog)
	require.Len(t, args, 4)
	assert.Equal(t, "--dump-section", args[0])
	assert.True(t, strings.HasPrefix(args[1], DefaultName+"="))
	assert.Equal(t, bin, args[2])
	assert.NotEqual(t, bin, args[3], "the binary must not be rewritten by a read")

	scratch := strings.TrimPrefix(args[1], DefaultName+"=")
	assert.NoFileExists(t, scratch)
	assert.NoFileExists(t, args[3])
}

func TestReadSection_ObjcopyMissingSection(t *testing.T) {
	tool, _ := fakeObjcopy(t, `echo "objcopy: can't dump section '.esstra' - it does not exist: file format not recognized" >&2
exit 1
`)
	bin := writeBinary(t, "tiny")

	_, err := NewBinutils(WithObjcopy(tool)).ReadSection(context.Background(), bin, DefaultName)
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestWriteSection(t *testing.T) {
	tool, argsLog := fakeObjcopy(t, `spec="$2"
cp "${spec#*=}" "$(dirname "$0")/staged"
`)
	bin := writeBinary(t, "binary")

	err := NewBinutils(WithObjcopy(tool)).WriteSection(context.Background(), bin, DefaultName, []byte("---\x00SourceFiles: {}\x00"))
	require.NoError(t, err)

	args := readArgs(t, argsLog)
	require.Len(t, args, 3)
	assert.Equal(t, "--update-section", args[0])
	assert.Equal(t, bin, args[2])

	staged, err := os.ReadFile(filepath.Join(filepath.Dir(tool), "staged"))
	require.NoError(t, err)
	assert.Equal(t, "---\x00SourceFiles: {}\x00", string(staged))
	assert.NoFileExists(t, strings.TrimPrefix(args[1], DefaultName+"="), "scratch file must be removed")
}

func TestWriteSection_ToolFailure(t *testing.T) {
	tool, _ := fakeObjcopy(t, `echo "objcopy: error: section '.esstra' not found" >&2
exit 1
`)
	bin := writeBinary(t, "binary")

	err := NewBinutils(WithObjcopy(tool)).WriteSection(context.Background(), bin, DefaultName, []byte("x"))

	var te *ExternalToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "write", te.Op)
	assert.Equal(t, 1, te.Code)
	assert.Contains(t, te.Error(), "not found")
}

func TestWriteSection_EmptyResult(t *testing.T) {
	tool, _ := fakeObjcopy(t, `: > "$3"
`)
	bin := writeBinary(t, "binary")

	err := NewBinutils(WithObjcopy(tool)).WriteSection(context.Background(), bin, DefaultName, []byte("x"))

	var te *ExternalToolError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Error(), "empty file")
}

func TestWriteSection_ToolNotFound(t *testing.T) {
	bin := writeBinary(t, "binary")

	err := NewBinutils(WithObjcopy(filepath.Join(t.TempDir(), "objcopy"))).
		WriteSection(context.Background(), bin, DefaultName, []byte("x"))

	var te *ExternalToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, -1, te.Code)
}

func TestRemoveSection(t *testing.T) {
	tool, argsLog := fakeObjcopy(t, "")
	bin := writeBinary(t, "binary")

	require.NoError(t, NewBinutils(WithObjcopy(tool)).RemoveSection(context.Background(), bin, DefaultName))
	assert.Equal(t, []string{"--remove-section", DefaultName, bin}, readArgs(t, argsLog))
}

func TestCopyFileAndExists(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs cp")
	}
	bin := writeBinary(t, "original")
	backup := bin + ".bak"
	b := NewBinutils()

	exists, err := b.Exists(context.Background(), backup)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.CopyFile(context.Background(), bin, backup))

	exists, err = b.Exists(context.Background(), backup)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
