// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/pkg/errutil"
)

func TestReadPassword(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantCode string
	}{
		{name: "line", input: "Adm1nPassword\n", want: "Adm1nPassword"},
		{name: "crlf", input: "Adm1nPassword\r\nignored\n", want: "Adm1nPassword"},
		{name: "no newline", input: "Adm1nPassword", want: "Adm1nPassword"},
		{name: "empty", input: "", wantCode: "PASSWORD_REQUIRED"},
		{name: "blank line", input: "\n", wantCode: "PASSWORD_REQUIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPassword(strings.NewReader(tt.input))
			if tt.wantCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserCreateAdmin_RequiresFlags(t *testing.T) {
	serveEnv(t)

	_, err := execute(t, &Deps{Connect: failingConnect(nil)}, "Adm1nPassword\n", "user", "create-admin", "--email", "root@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full-name")
}

func TestUserCreateAdmin_PasswordBeforeConnect(t *testing.T) {
	serveEnv(t)

	_, err := execute(t, &Deps{Connect: failingConnect(nil)}, "",
		"user", "create-admin", "--email", "root@x.com", "--full-name", "Root")
	errutil.AssertErrorCode(t, err, "PASSWORD_REQUIRED")
}

func TestUserCreateAdmin_ConnectFailure(t *testing.T) {
	serveEnv(t)

	_, err := execute(t, &Deps{Connect: failingConnect(nil)}, "Adm1nPassword\n",
		"user", "create-admin", "--email", "root@x.com", "--full-name", "Root")
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestUserDeactivate_InvalidEmail(t *testing.T) {
	serveEnv(t)

	_, err := execute(t, &Deps{Connect: failingConnect(nil)}, "", "user", "deactivate", "not-an-email")
	assert.Equal(t, auth.CodeValidation, auth.Code(err))
}

func TestUserActivate_RequiresConfig(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, &Deps{Connect: failingConnect(nil)}, "", "user", "activate", "a@x.com")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestOTPPurge_ConnectFailure(t *testing.T) {
	serveEnv(t)

	_, err := execute(t, &Deps{Connect: failingConnect(nil)}, "", "otp", "purge")
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}
