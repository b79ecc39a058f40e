package models

import "fmt"

// Role names a permission tier a thread flag can grant access to.
// The set is closed; mapping an unknown role to a group is a programming
// error and panics at construction time rather than failing per request.
type Role int

const (
	RoleDeveloper Role = iota
	RoleReviewer
	RoleSeniorReviewer
	RoleMozillaContact
	RoleStaff
)

// Named role groups in the membership directory.
const (
	GroupAppReviewers       = "App Reviewers"
	GroupSeniorAppReviewers = "Senior App Reviewers"
	GroupAdmins             = "Admins"
)

var roleGroups = map[Role]string{
	RoleReviewer:       GroupAppReviewers,
	RoleSeniorReviewer: GroupSeniorAppReviewers,
	RoleStaff:          GroupAdmins,
}

var roleNames = map[Role]string{
	RoleDeveloper:      "developer",
	RoleReviewer:       "reviewer",
	RoleSeniorReviewer: "senior_reviewer",
	RoleMozillaContact: "mozilla_contact",
	RoleStaff:          "staff",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// GroupName returns the directory group backing a role. Developer and
// mozilla-contact access are relations on the app, not groups; asking for
// their group is a bug in the caller.
func (r Role) GroupName() string {
	group, ok := roleGroups[r]
	if !ok {
		panic(fmt.Sprintf("no membership group for role %s", r))
	}
	return group
}
