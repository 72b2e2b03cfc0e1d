package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("user").Valid())
	assert.False(t, Role("").Valid())

	assert.Equal(t, "/admin", RoleAdmin.Home())
	assert.Equal(t, "/dashboard", RoleUser.Home())
}

func TestUser_Subject(t *testing.T) {
	u := &User{ID: 42}
	assert.Equal(t, "42", u.Subject())

	u.PublicID = "UID-290350001"
	assert.Equal(t, "UID-290350001", u.Subject())
}
