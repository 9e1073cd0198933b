package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"billdash/internal/sentinel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLiteStoreSuite struct {
	suite.Suite
	path  string
	store *Store
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}

func (s *SQLiteStoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "session.db")
	st, err := Open(context.Background(), s.path)
	s.Require().NoError(err)
	s.store = st
}

func (s *SQLiteStoreSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *SQLiteStoreSuite) TestSetOverwrites() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Set(ctx, "token", "first"))
	require.NoError(s.T(), s.store.Set(ctx, "token", "second"))

	got, err := s.store.Get(ctx, "token")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "second", got)
}

func (s *SQLiteStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "tenant")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *SQLiteStoreSuite) TestPersistsAcrossOpen() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Set(ctx, "tenant", `{"name":"Acme"}`))
	require.NoError(s.T(), s.store.Close())

	reopened, err := Open(ctx, s.path)
	require.NoError(s.T(), err)
	s.store = reopened

	got, err := reopened.Get(ctx, "tenant")
	require.NoError(s.T(), err)
	assert.JSONEq(s.T(), `{"name":"Acme"}`, got)
}

func (s *SQLiteStoreSuite) TestDeleteIsIdempotent() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Set(ctx, "user", "{}"))
	require.NoError(s.T(), s.store.Delete(ctx, "user"))
	require.NoError(s.T(), s.store.Delete(ctx, "user"))

	_, err := s.store.Get(ctx, "user")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}
