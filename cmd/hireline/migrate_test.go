// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireline/hireline/pkg/errutil"
)

type fakeMigrator struct {
	version  uint
	dirty    bool
	pending  []uint
	upErr    error
	closeErr error

	upCalled   bool
	downCalled bool
	forced     *int
	closed     bool
}

func (f *fakeMigrator) Up() error {
	f.upCalled = true
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.downCalled = true
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, nil }

func (f *fakeMigrator) Force(v int) error {
	f.forced = &v
	return nil
}

func (f *fakeMigrator) PendingMigrations() ([]uint, error) { return f.pending, nil }

func (f *fakeMigrator) Close() error {
	f.closed = true
	return f.closeErr
}

func migratorDeps(m *fakeMigrator, gotURL *string) *Deps {
	return &Deps{
		MigratorFactory: func(url string) (Migrator, error) {
			if gotURL != nil {
				*gotURL = url
			}
			return m, nil
		},
	}
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "float", input: "1.5", wantErrCode: "INVALID_VERSION"},
		{name: "trailing chars", input: "3abc", wantErrCode: "INVALID_VERSION"},
		{name: "negative", input: "-1", wantErrCode: "INVALID_VERSION"},
		{name: "empty", input: "", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, v)
		})
	}
}

func TestGetDatabaseURL_Missing(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, migratorDeps(&fakeMigrator{}, nil), "", "migrate", "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestMigrateUp(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hireline")
	m := &fakeMigrator{}
	var gotURL string

	out, err := execute(t, migratorDeps(m, &gotURL), "", "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/hireline", gotURL)
	assert.True(t, m.upCalled)
	assert.True(t, m.closed)
	assert.Contains(t, out, "Migrations applied")
}

func TestMigrateUp_ErrorKeepsCode(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hireline")
	m := &fakeMigrator{upErr: oops.Code("MIGRATION_UP_FAILED").Errorf("boom"), closeErr: errors.New("close")}

	_, err := execute(t, migratorDeps(m, nil), "", "migrate", "up")
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
	assert.ErrorContains(t, err, "close")
}

func TestMigrateDown_RequiresConfirmation(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hireline")
	m := &fakeMigrator{}

	_, err := execute(t, migratorDeps(m, nil), "", "migrate", "down")
	errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
	assert.False(t, m.downCalled)

	out, err := execute(t, migratorDeps(m, nil), "", "migrate", "down", "--yes")
	require.NoError(t, err)
	assert.True(t, m.downCalled)
	assert.Contains(t, out, "reverted")
}

func TestMigrateVersion(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hireline")

	out, err := execute(t, migratorDeps(&fakeMigrator{version: 3}, nil), "", "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version 3")

	out, err = execute(t, migratorDeps(&fakeMigrator{version: 2, dirty: true}, nil), "", "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version 2 (dirty)")
}

func TestMigrateForce(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hireline")
	m := &fakeMigrator{}

	out, err := execute(t, migratorDeps(m, nil), "", "migrate", "force", "2")
	require.NoError(t, err)
	require.NotNil(t, m.forced)
	assert.Equal(t, 2, *m.forced)
	assert.Contains(t, out, "Forced version 2")

	_, err = execute(t, migratorDeps(&fakeMigrator{}, nil), "", "migrate", "force", "two")
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigratePending(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hireline")

	out, err := execute(t, migratorDeps(&fakeMigrator{pending: []uint{2, 3}}, nil), "", "migrate", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "000002_create_otp_challenges")
	assert.NotContains(t, out, "000001_")

	out, err = execute(t, migratorDeps(&fakeMigrator{}, nil), "", "migrate", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending migrations")
}
