// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package store

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/harborlight/pkg/errutil"
)

type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/harborlight")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgres://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("pgx5://u@h/db"))
}

func TestMigrator_ErrNoChangeIsSuccess(t *testing.T) {
	m := &Migrator{m: &mockMigrate{
		upErr:    migrate.ErrNoChange,
		downErr:  migrate.ErrNoChange,
		stepsErr: migrate.ErrNoChange,
	}}
	assert.NoError(t, m.Up())
	assert.NoError(t, m.Down())
	assert.NoError(t, m.Steps(0))
}

func TestMigrator_ErrorCodes(t *testing.T) {
	boom := errors.New("database locked")
	m := &Migrator{m: &mockMigrate{upErr: boom, downErr: boom, stepsErr: boom, forceErr: boom, versionErr: boom}}

	errutil.AssertErrorCode(t, m.Up(), "MIGRATION_UP_FAILED")
	errutil.AssertErrorCode(t, m.Down(), "MIGRATION_DOWN_FAILED")
	errutil.AssertErrorCode(t, m.Steps(1), "MIGRATION_STEPS_FAILED")
	errutil.AssertErrorCode(t, m.Force(1), "MIGRATION_FORCE_FAILED")
	_, _, err := m.Version()
	errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
}

func TestMigrator_Version(t *testing.T) {
	m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	m = &Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}
	v, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.True(t, dirty)
}

func TestMigrator_ForceRejectsNegative(t *testing.T) {
	m := &Migrator{m: &mockMigrate{}}
	errutil.AssertErrorCode(t, m.Force(-1), "INVALID_VERSION")
}

func TestMigrator_Close(t *testing.T) {
	assert.NoError(t, (&Migrator{m: &mockMigrate{}}).Close())

	err := (&Migrator{m: &mockMigrate{closeSourceErr: errors.New("a"), closeDbErr: errors.New("b")}}).Close()
	errutil.AssertErrorContext(t, err, "component", "both")

	err = (&Migrator{m: &mockMigrate{closeDbErr: errors.New("b")}}).Close()
	errutil.AssertErrorContext(t, err, "component", "database")
}

func TestMigrator_Status(t *testing.T) {
	m := &Migrator{m: &mockMigrate{versionVal: 1}}
	applied, pending, err := m.Status()
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "000001_credentials", applied[0].Name)
	require.NotEmpty(t, pending)
	assert.Equal(t, uint(2), pending[0].Version)
}

func TestListMigrations_SkipsUnexpectedFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000002_b.up.sql":   {},
		"migrations/000001_a.up.sql":   {},
		"migrations/000001_a.down.sql": {},
		"migrations/README.md":         {},
		"migrations/bad.up.sql":        {},
	}
	got, err := listMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []Migration{{1, "000001_a"}, {2, "000002_b"}}, got)
}
