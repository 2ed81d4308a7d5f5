package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nCLMM_TEST_STRING = hello\nCLMM_TEST_UINT=42\nnot-a-pair\nCLMM_TEST_KEPT=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CLMM_TEST_STRING", "")
	t.Setenv("CLMM_TEST_UINT", "")
	t.Setenv("CLMM_TEST_KEPT", "from-env")

	require.NoError(t, LoadEnv(path))
	require.Equal(t, "hello", os.Getenv("CLMM_TEST_STRING"))
	require.Equal(t, "42", os.Getenv("CLMM_TEST_UINT"))
	require.Equal(t, "from-env", os.Getenv("CLMM_TEST_KEPT"), "environment wins over the file")

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")), "a missing file is not an error")
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("CLMM_TEST_STR", "value")
	t.Setenv("CLMM_TEST_U64", "123")
	t.Setenv("CLMM_TEST_F64", "2.5")
	t.Setenv("CLMM_TEST_BOOL", "true")
	t.Setenv("CLMM_TEST_JUNK", "not-a-number")

	require.Equal(t, "value", GetString("CLMM_TEST_STR", "def"))
	require.Equal(t, "def", GetString("CLMM_TEST_UNSET", "def"))

	require.Equal(t, uint64(123), GetUint64("CLMM_TEST_U64", 7))
	require.Equal(t, uint64(7), GetUint64("CLMM_TEST_UNSET", 7))
	require.Equal(t, uint64(7), GetUint64("CLMM_TEST_JUNK", 7))

	require.Equal(t, 2.5, GetFloat64("CLMM_TEST_F64", 1.0))
	require.Equal(t, 1.0, GetFloat64("CLMM_TEST_UNSET", 1.0))
	require.Equal(t, 1.0, GetFloat64("CLMM_TEST_JUNK", 1.0))

	require.True(t, GetBool("CLMM_TEST_BOOL", false))
	require.False(t, GetBool("CLMM_TEST_UNSET", false))
	require.True(t, GetBool("CLMM_TEST_JUNK", true))
}
