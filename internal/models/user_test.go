package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUser_SetPassword(t *testing.T) {
	u := User{Username: "alice"}
	require.NoError(t, u.SetPassword("correct horse battery", bcrypt.MinCost))

	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "correct horse battery", u.PasswordHash)
	assert.True(t, u.CheckPassword("correct horse battery"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestUser_SetPassword_DistinctHashes(t *testing.T) {
	a := User{Username: "alice"}
	b := User{Username: "bob"}
	require.NoError(t, a.SetPassword("same-secret", bcrypt.MinCost))
	require.NoError(t, b.SetPassword("same-secret", bcrypt.MinCost))

	// bcrypt salts per hash
	assert.NotEqual(t, a.PasswordHash, b.PasswordHash)
}

func TestUser_CheckPassword_DelegatedNeverMatches(t *testing.T) {
	u := User{Username: "carol", UsePAMAuth: true}

	assert.Empty(t, u.PasswordHash)
	assert.False(t, u.CheckPassword("anything"))

	// Even if a hash were somehow present, delegated accounts ignore it.
	require.NoError(t, u.SetPassword("leftover", bcrypt.MinCost))
	assert.False(t, u.CheckPassword("leftover"))
}

func TestUser_AuthModeOf(t *testing.T) {
	assert.Equal(t, AuthModeLocal, (&User{}).AuthModeOf())
	assert.Equal(t, AuthModeDelegated, (&User{UsePAMAuth: true}).AuthModeOf())
}

func TestUser_FullName(t *testing.T) {
	u := User{FirstName: "Test", LastName: "User"}
	assert.Equal(t, "Test User", u.FullName())

	assert.Equal(t, "Solo", (&User{FirstName: "Solo"}).FullName())
}
