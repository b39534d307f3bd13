package ldap

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLDAPError(t *testing.T) {
	tests := []struct {
		name         string
		operation    string
		err          error
		wantNil      bool
		wantCategory ErrorCategory
		wantCode     uint16
	}{
		{
			name:      "nil error",
			operation: "search",
			err:       nil,
			wantNil:   true,
		},
		{
			name:         "no such object",
			operation:    "search",
			err:          ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object")),
			wantCategory: ErrorCategoryNotFound,
			wantCode:     ldap.LDAPResultNoSuchObject,
		},
		{
			name:         "entry already exists",
			operation:    "add",
			err:          ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("entry exists")),
			wantCategory: ErrorCategoryConflict,
			wantCode:     ldap.LDAPResultEntryAlreadyExists,
		},
		{
			name:         "invalid credentials",
			operation:    "bind",
			err:          ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password")),
			wantCategory: ErrorCategoryAuthentication,
			wantCode:     ldap.LDAPResultInvalidCredentials,
		},
		{
			name:         "insufficient access",
			operation:    "modify",
			err:          ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("denied")),
			wantCategory: ErrorCategoryPermission,
			wantCode:     ldap.LDAPResultInsufficientAccessRights,
		},
		{
			name:         "generic error",
			operation:    "connect",
			err:          errors.New("connection refused"),
			wantCategory: ErrorCategoryConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewLDAPError(tt.operation, tt.err)

			if tt.wantNil {
				assert.Nil(t, result)
				return
			}

			require.NotNil(t, result)
			assert.Equal(t, tt.operation, result.Operation)
			assert.Equal(t, tt.wantCategory, result.Category)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, tt.err, result.Cause)
		})
	}
}

func TestLDAPErrorInfoFromResultCode(t *testing.T) {
	err := NewLDAPError("add", ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("cn=x already there")))
	require.NotNil(t, err)

	assert.Equal(t, ldap.LDAPResultCodeMap[ldap.LDAPResultEntryAlreadyExists], err.Info)
	assert.Equal(t, "cn=x already there", err.Diagnostic)
	assert.Contains(t, err.Error(), err.Info)
}

func TestIsCodeRetryable(t *testing.T) {
	assert.True(t, isCodeRetryable(ldap.LDAPResultBusy))
	assert.True(t, isCodeRetryable(ldap.LDAPResultUnavailable))
	assert.False(t, isCodeRetryable(ldap.LDAPResultNoSuchObject))
	assert.False(t, isCodeRetryable(ldap.LDAPResultInvalidCredentials))
}

func TestErrorPredicates(t *testing.T) {
	notFound := NewLDAPError("search", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("missing")))
	conflict := NewLDAPError("add", ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("dup")))
	auth := NewLDAPError("bind", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("nope")))

	assert.True(t, IsNotFoundError(notFound))
	assert.False(t, IsNotFoundError(conflict))

	assert.True(t, IsConflictError(conflict))
	assert.False(t, IsConflictError(notFound))

	assert.True(t, IsAuthenticationError(auth))
	assert.False(t, IsAuthenticationError(errors.New("plain")))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError("search", nil))

	wrapped := WrapError("search", errors.New("boom"))
	var le *LDAPError
	require.True(t, errors.As(wrapped, &le))
	assert.Equal(t, "search", le.Operation)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, ErrorCategoryUnknown, GetErrorCategory(errors.New("plain")))

	le := NewLDAPError("search", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("missing")))
	assert.Equal(t, ErrorCategoryNotFound, GetErrorCategory(le))
}
