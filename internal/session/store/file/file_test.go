package file

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"billdash/internal/sentinel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type FileStoreSuite struct {
	suite.Suite
	path  string
	store *Store
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "nested", "session.yaml")
	s.store = New(s.path)
}

func (s *FileStoreSuite) TestMissingFileReadsAsEmpty() {
	_, err := s.store.Get(context.Background(), "token")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
	_, statErr := os.Stat(s.path)
	assert.True(s.T(), os.IsNotExist(statErr), "reads must not create the file")
}

func (s *FileStoreSuite) TestSetPersistsAcrossInstances() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Set(ctx, "token", "abc"))
	require.NoError(s.T(), s.store.Set(ctx, "user", `{"email":"a@b.c"}`))

	reopened := New(s.path)
	token, err := reopened.Get(ctx, "token")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "abc", token)

	user, err := reopened.Get(ctx, "user")
	require.NoError(s.T(), err)
	assert.JSONEq(s.T(), `{"email":"a@b.c"}`, user)
}

func (s *FileStoreSuite) TestFileIsOwnerOnly() {
	if runtime.GOOS == "windows" {
		s.T().Skip("unix permissions")
	}
	require.NoError(s.T(), s.store.Set(context.Background(), "token", "abc"))
	info, err := os.Stat(s.path)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), os.FileMode(0o600), info.Mode().Perm())
}

func (s *FileStoreSuite) TestDelete() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Set(ctx, "token", "abc"))
	require.NoError(s.T(), s.store.Delete(ctx, "token"))
	require.NoError(s.T(), s.store.Delete(ctx, "token"))

	_, err := s.store.Get(ctx, "token")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *FileStoreSuite) TestCorruptFile() {
	require.NoError(s.T(), os.MkdirAll(filepath.Dir(s.path), 0o700))
	require.NoError(s.T(), os.WriteFile(s.path, []byte("entries: [not, a, map"), 0o600))

	_, err := s.store.Get(context.Background(), "token")
	assert.ErrorIs(s.T(), err, sentinel.ErrInvalidData)
	assert.Contains(s.T(), err.Error(), "yaml:", "parser detail is kept")
	assert.Contains(s.T(), err.Error(), s.path)
}

func (s *FileStoreSuite) TestWrongShapeKeepsDecodeError() {
	require.NoError(s.T(), os.MkdirAll(filepath.Dir(s.path), 0o700))
	require.NoError(s.T(), os.WriteFile(s.path, []byte("entries: [a, b]\n"), 0o600))

	_, err := s.store.Get(context.Background(), "token")
	require.ErrorIs(s.T(), err, sentinel.ErrInvalidData)

	var typeErr *yaml.TypeError
	assert.ErrorAs(s.T(), err, &typeErr)
}
