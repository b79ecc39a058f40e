package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleGroupName(t *testing.T) {
	assert.Equal(t, GroupAppReviewers, RoleReviewer.GroupName())
	assert.Equal(t, GroupSeniorAppReviewers, RoleSeniorReviewer.GroupName())
	assert.Equal(t, GroupAdmins, RoleStaff.GroupName())

	// Developer and mozilla-contact access are app relations, not groups.
	assert.Panics(t, func() { RoleDeveloper.GroupName() })
	assert.Panics(t, func() { RoleMozillaContact.GroupName() })
}

func TestUserAnonymous(t *testing.T) {
	var nobody *User
	assert.True(t, nobody.Anonymous())
	assert.True(t, (&User{}).Anonymous())
	assert.False(t, (&User{ID: 7}).Anonymous())
}
