package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	for _, args := range [][]string{
		{"state", "set", "on"},
		{"consent", "grant"},
		{"observe", "record", "--id", "0123456789abcdef0123456789abcdef", "--at", "2026-10-12T08:00:00Z"},
	} {
		_, stderr, err := runExpo(t, binaryPath, home, args...)
		require.NoError(t, err, "stderr: %s", stderr)
	}

	keysPath := filepath.Join(t.TempDir(), "keys.toml")
	require.NoError(t, os.WriteFile(keysPath, []byte(`version = 1

[[keys]]
key = "000102030405060708090a0b0c0d0e0f"
day = "2026-10-12"

[[keys]]
key = "101112131415161718191a1b1c1d1e1f"
day = "2026-10-12"

[[keys]]
key = "202122232425262728292a2b2c2d2e2f"
day = "2026-10-11"
`), 0o600))

	stdout, stderr, err := runExpo(t, binaryPath, home, "detect", "--keys", keysPath, "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, `"exposed": false`)
	assert.Contains(t, stdout, `"keys_checked": 3`)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "expo-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/expo")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build expo binary: %s", string(output))
	return binaryPath
}

func runExpo(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home, "EXPO_HOME="+filepath.Join(home, ".expo"), "EXPO_SECRETS_BACKEND=file")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
