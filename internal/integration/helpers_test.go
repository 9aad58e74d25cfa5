package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/firmware-deploy/internal/config"
)

// fakeCompiler answers "version" and, for "compile", writes <sketch>.bin plus a bootloader
// image into the --output-dir argument, mimicking what arduino-cli leaves behind.
const fakeCompiler = `#!/bin/sh
case "$1" in
version)
	echo "arduino-cli Version: 1.1.1 (integration)"
	;;
compile)
	mkdir -p "$5" || exit 1
	printf 'bootloader' > "$5/$(basename "$6").bootloader.bin"
	printf 'image for %s' "$3" > "$5/$(basename "$6").bin"
	;;
*)
	echo "unexpected arguments: $*" >&2
	exit 2
	;;
esac
`

// checkout is a sketch repository with a bare remote on disk.
type checkout struct {
	cfg    config.Config
	remote string
}

// newCheckout initializes a repository with one committed sketch and an origin remote.
// The test is skipped where git or a POSIX shell are not available.
func newCheckout(t *testing.T) *checkout {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("the compiler stand-in is a shell script")
	}

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	root := t.TempDir()
	work := filepath.Join(root, "sketch")
	remote := filepath.Join(root, "remote.git")
	compiler := filepath.Join(root, "arduino-cli")

	require.NoError(t, os.WriteFile(compiler, []byte(fakeCompiler), 0o755)) //nolint:gosec // Must be executable.
	require.NoError(t, os.MkdirAll(work, 0o755))

	git(t, root, "init", "--quiet", "--bare", remote)
	git(t, work, "init", "--quiet")
	git(t, work, "symbolic-ref", "HEAD", "refs/heads/main")
	git(t, work, "config", "user.name", "Deploy Test")
	git(t, work, "config", "user.email", "deploy@example.com")
	git(t, work, "config", "commit.gpgsign", "false")
	git(t, work, "remote", "add", "origin", remote)

	require.NoError(t, os.WriteFile(filepath.Join(work, "monitor.ino"), []byte("void setup() {}\nvoid loop() {}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(work, ".gitignore"), []byte("build/\n"), 0o600))

	git(t, work, "add", ".")
	git(t, work, "commit", "--quiet", "-m", "Initial sketch")
	git(t, work, "push", "--quiet", "origin", "main")

	cfg := config.Default()
	cfg.WorkDir = work
	cfg.CompilerCLI = compiler
	require.NoError(t, config.Validate(&cfg))

	return &checkout{
		cfg:    cfg,
		remote: remote,
	}
}

// git runs a git command in dir and returns its trimmed stdout.
func git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	require.NoError(t, cmd.Run(), "git %s: %s", strings.Join(args, " "), stderr.String())

	return strings.TrimSpace(stdout.String())
}

// remoteFile returns the content of name on the remote main branch.
func (c *checkout) remoteFile(t *testing.T, name string) string {
	t.Helper()

	return git(t, c.remote, "show", "main:"+name)
}

// remoteSubject returns the subject of the newest commit on the remote main branch.
func (c *checkout) remoteSubject(t *testing.T) string {
	t.Helper()

	return git(t, c.remote, "log", "-1", "--format=%s", "main")
}
