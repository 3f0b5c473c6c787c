package models

// RoleType defines the role carried in an actor's access token
type RoleType string

const (
	RoleStudent        RoleType = "STUDENT"
	RoleAdviser        RoleType = "ADVISER"
	RoleCoordinator    RoleType = "COORDINATOR"
	RoleAdminAssistant RoleType = "ADMIN_ASSISTANT"
	RoleAdministrator  RoleType = "ADMINISTRATOR"
	RoleSystem         RoleType = "SYSTEM"
)

// DefenseType is the stage of the thesis being defended
type DefenseType string

const (
	DefenseTypeProposal DefenseType = "proposal"
	DefenseTypePrefinal DefenseType = "prefinal"
	DefenseTypeFinal    DefenseType = "final"
)

// Valid reports whether t is a known defense type.
func (t DefenseType) Valid() bool {
	switch t {
	case DefenseTypeProposal, DefenseTypePrefinal, DefenseTypeFinal:
		return true
	}
	return false
}

// Category is the program-record category a defense of this type is filed under.
func (t DefenseType) Category() string {
	switch t {
	case DefenseTypeProposal:
		return "Proposal Defense"
	case DefenseTypePrefinal:
		return "Pre-Final Defense"
	case DefenseTypeFinal:
		return "Final Defense"
	}
	return "Unclassified"
}

// Priority orders requests in coordinator queues
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DefenseMode is how the defense is held
type DefenseMode string

const (
	ModeFaceToFace DefenseMode = "face-to-face"
	ModeOnline     DefenseMode = "online"
)

// Valid reports whether m is a known mode.
func (m DefenseMode) Valid() bool {
	return m == ModeFaceToFace || m == ModeOnline
}

// Valid reports whether r is a known role.
func (r RoleType) Valid() bool {
	switch r {
	case RoleStudent, RoleAdviser, RoleCoordinator, RoleAdminAssistant, RoleAdministrator, RoleSystem:
		return true
	}
	return false
}
