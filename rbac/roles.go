// Package rbac defines the platform's roles, permission identifiers, and the
// role to permission derivation used by both route guards and the request
// dispatcher. Permissions are never stored; they are always recomputed from roles.
package rbac

import "sort"

// RoleType represents a named bundle of permissions assigned to a user
type RoleType string

const (
	RoleStudent RoleType = "Student"
	RoleTeacher RoleType = "Teacher"
	RoleAdmin   RoleType = "Admin"
)

// Permission identifiers. Deployment-specific strings: the platform backend
// checks these verbatim, so they must match its configuration.
const (
	PermUserListRead    = "user:list:read"
	PermUserDataRead    = "user:data:read"
	PermUserBlockWrite  = "user:block:write"
	PermUserRolesWrite  = "user:roles:write"
	PermCourseAdd       = "course:add"
	PermCourseInfoWrite = "course:info:write"
	PermCourseDelete    = "course:del"
	PermTestAdd         = "course:test:add"
	PermTestWrite       = "course:test:write"
	PermTestDelete      = "course:test:del"
	PermQuestionCreate  = "quest:create"
	PermQuestionUpdate  = "quest:update"
	PermQuestionDelete  = "quest:del"
	PermQuestionsRead   = "quest:list:read"
	PermAnswersRead     = "test:answer:read"
)

// RolePermissions is the authoritative role to permission table. Every role
// maps to an explicit list; a role absent from the table grants nothing.
// Students hold the baseline (no elevated permissions), teachers hold
// read/write over course material and results, admins hold the teacher set
// plus user management.
var RolePermissions = map[RoleType][]string{
	RoleStudent: {},
	RoleTeacher: {
		PermCourseAdd,
		PermCourseInfoWrite,
		PermCourseDelete,
		PermTestAdd,
		PermTestWrite,
		PermTestDelete,
		PermQuestionCreate,
		PermQuestionUpdate,
		PermQuestionDelete,
		PermQuestionsRead,
		PermAnswersRead,
	},
	RoleAdmin: {
		PermCourseAdd,
		PermCourseInfoWrite,
		PermCourseDelete,
		PermTestAdd,
		PermTestWrite,
		PermTestDelete,
		PermQuestionCreate,
		PermQuestionUpdate,
		PermQuestionDelete,
		PermQuestionsRead,
		PermAnswersRead,
		PermUserListRead,
		PermUserDataRead,
		PermUserBlockWrite,
		PermUserRolesWrite,
	},
}

// PermissionsForRoles derives the permission set for a combination of roles.
// Pure and total: unknown roles contribute nothing, permissions accumulate as
// a set union (no subtraction, no role precedence). The result is sorted so
// repeated calls with the same roles are byte-for-byte identical.
func PermissionsForRoles(roles []RoleType) []string {
	set := make(map[string]struct{})
	for _, role := range roles {
		for _, perm := range RolePermissions[role] {
			set[perm] = struct{}{}
		}
	}

	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms
}

// HasPermission reports whether perm is present in a derived permission set.
// Both the permission route guard and the dispatcher's permission option use
// this single check so the two enforcement points cannot drift.
func HasPermission(permissions []string, perm string) bool {
	for _, p := range permissions {
		if p == perm {
			return true
		}
	}
	return false
}
