// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcab/tutorcab/internal/store"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

type fakeMigrator struct {
	calls  []string
	forced int
	status *store.Status
	err    error
	closed bool
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.err }

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}

func (f *fakeMigrator) Status() (*store.Status, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}

func (f *fakeMigrator) Close() error { f.closed = true; return nil }

func runMigrate(t *testing.T, fake *fakeMigrator, args ...string) (string, string, error) {
	t.Helper()
	var gotURL string
	cmd := newMigrateCmd(&MigrateDeps{
		MigratorFactory: func(url string) (Migrator, error) {
			gotURL = url
			return fake, nil
		},
	})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), gotURL, err
}

func TestMigrate_Up(t *testing.T) {
	isolate(t)
	fake := &fakeMigrator{}

	out, url, err := runMigrate(t, fake, "up", "--database-url", "postgres://u:p@db/tutorcab")
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db/tutorcab", url)
	assert.Equal(t, []string{"up"}, fake.calls)
	assert.True(t, fake.closed)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrate_URLFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TUTORCAB_STORE__POSTGRES__URL", "postgres://env@db/tutorcab")
	fake := &fakeMigrator{}

	_, url, err := runMigrate(t, fake, "down")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env@db/tutorcab", url)
	assert.Equal(t, []string{"down"}, fake.calls)
}

func TestMigrate_Status(t *testing.T) {
	isolate(t)
	fake := &fakeMigrator{status: &store.Status{
		Current: 1,
		Latest:  2,
		Dirty:   true,
		Pending: []store.Migration{{Version: 2, Name: "000002_kv_store_key_prefix_index"}},
	}}

	out, _, err := runMigrate(t, fake, "status", "--database-url", "postgres://db/tutorcab")
	require.NoError(t, err)

	assert.Contains(t, out, "Current version: 1")
	assert.Contains(t, out, "Latest version:  2")
	assert.Contains(t, out, "DIRTY")
	assert.Contains(t, out, "000002 000002_kv_store_key_prefix_index")
}

func TestMigrate_StatusUpToDate(t *testing.T) {
	isolate(t)
	fake := &fakeMigrator{status: &store.Status{Current: 2, Latest: 2}}

	out, _, err := runMigrate(t, fake, "status", "--database-url", "postgres://db/tutorcab")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending migrations")
	assert.NotContains(t, out, "DIRTY")
}

func TestMigrate_Force(t *testing.T) {
	isolate(t)
	fake := &fakeMigrator{}

	out, _, err := runMigrate(t, fake, "force", "1", "--database-url", "postgres://db/tutorcab")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.forced)
	assert.Contains(t, out, "Forced version 1")
}

func TestMigrate_NoDatabaseURL(t *testing.T) {
	isolate(t)
	fake := &fakeMigrator{}

	_, _, err := runMigrate(t, fake, "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "store.postgres.url")
	assert.Empty(t, fake.calls)
}

func TestMigrate_FailurePropagates(t *testing.T) {
	isolate(t)
	fake := &fakeMigrator{err: oops.Code("MIGRATION_UP_FAILED").Errorf("dirty database")}

	_, _, err := runMigrate(t, fake, "up", "--database-url", "postgres://db/tutorcab")
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
	assert.True(t, fake.closed, "migrator is closed on failure")
}

func TestMigrate_FactoryFailure(t *testing.T) {
	isolate(t)
	cmd := newMigrateCmd(&MigrateDeps{
		MigratorFactory: func(string) (Migrator, error) { return nil, errors.New("dial tcp: refused") },
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"up", "--database-url", "postgres://db/tutorcab"})

	errutil.AssertErrorCode(t, cmd.Execute(), "DB_CONNECT_FAILED")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "3", want: 3},
		{input: "0", want: 0},
		{input: "abc", wantErr: true},
		{input: "1.5", wantErr: true},
		{input: "3abc", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
