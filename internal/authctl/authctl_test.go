package authctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coursesms/courses/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "@B7lpxQ9!kW2zm"

func stubPassword(t *testing.T, pw string, err error) {
	t.Helper()
	orig := readPassword
	readPassword = func() ([]byte, error) { return []byte(pw), err }
	t.Cleanup(func() { readPassword = orig })
}

func storeArgs(t *testing.T) []string {
	t.Helper()
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("SEED_PASSWORD", "")
	return []string{"-driver", "sqlite", "-d", "file:" + filepath.Join(t.TempDir(), "ctl.db")}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := New(strings.NewReader(stdin), &out, logging.Nop()).Run(context.Background(), args)
	return out.String(), err
}

func TestRun_Usage(t *testing.T) {
	_, err := run(t, "")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = run(t, "", "drop-tables")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestRun_MissingSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	_, err := run(t, "", "migrate", "-driver", "sqlite", "-d", "file:"+filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestRun_MigrateSeedList(t *testing.T) {
	store := storeArgs(t)

	out, err := run(t, "", append([]string{"migrate"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	out, err = run(t, "", append([]string{"seed", "-password", testPassword}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 users")

	out, err = run(t, "", append([]string{"seed", "-password", testPassword}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 users")

	out, err = run(t, "", append([]string{"list-users"}, store...)...)
	require.NoError(t, err)

	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "mario.rossi@email.com", listed[0]["email"])
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "refresh")
}

func TestRun_SeedPromptsForPassword(t *testing.T) {
	store := storeArgs(t)
	stubPassword(t, testPassword, nil)

	out, err := run(t, "", append([]string{"seed"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Seed accounts password")
	assert.Contains(t, out, "seeded 2 users")
}

func TestRun_CreateUser(t *testing.T) {
	store := storeArgs(t)
	stubPassword(t, testPassword, nil)

	out, err := run(t, "Alice\nSmith\n",
		append([]string{"create-user", "-email", "a@b.com", "-role", "admin"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "created user 1 (a@b.com, admin)")

	out, err = run(t, "", append([]string{"list-users"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"firstName": "Alice"`)
}

func TestRun_CreateUserPasswordError(t *testing.T) {
	store := storeArgs(t)
	stubPassword(t, "", errors.New("not a terminal"))

	_, err := run(t, "", append([]string{"create-user", "-email", "a@b.com", "-first", "Al", "-last", "Sm"}, store...)...)
	assert.Error(t, err)
}

func TestRun_ListEmpty(t *testing.T) {
	store := storeArgs(t)
	out, err := run(t, "", append([]string{"list-users"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "no users")
}
