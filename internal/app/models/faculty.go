package models

// Faculty is an entry in the panel directory of faculty who may sit on committees
type Faculty struct {
	ID       int64  `json:"id" db:"id" example:"7"`
	FullName string `json:"fullName" db:"full_name" example:"Dr. Jose Rizal"`
	Title    string `json:"title,omitempty" db:"title" example:"Associate Professor"`
	NameKey  string `json:"-" db:"name_key"`
	Active   bool   `json:"active" db:"active"`
}

// Ref returns a committee reference to this faculty member.
func (f Faculty) Ref() MemberRef {
	return MemberRef{FacultyID: f.ID, Name: f.FullName}
}
