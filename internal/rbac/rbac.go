// Package rbac maps classroom roles to editor actions. Students can
// read worksheets and submit answers; assistants additionally grade;
// teachers own and edit content.
package rbac

type Role string
type Action string

const (
	RoleStudent   Role = "student"
	RoleAssistant Role = "assistant"
	RoleTeacher   Role = "teacher"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead   Action = "read"
	ActionSubmit Action = "submit"
	ActionGrade  Action = "grade"
	ActionWrite  Action = "write"
	ActionAdmin  Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleTeacher:
		return action == ActionRead || action == ActionSubmit || action == ActionGrade || action == ActionWrite
	case RoleAssistant:
		return action == ActionRead || action == ActionGrade
	case RoleStudent:
		return action == ActionRead || action == ActionSubmit
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleStudent, RoleAssistant, RoleTeacher, RoleAdmin:
		return Role(role)
	default:
		return RoleStudent
	}
}
