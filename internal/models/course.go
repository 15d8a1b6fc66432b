package models

import "github.com/lib/pq"

// Course is an entry of the curriculum. Prerequisites keep catalog declaration order.
type Course struct {
	Code          string         `db:"code" json:"code"`
	Name          string         `db:"name" json:"name"`
	Credits       int            `db:"credits" json:"credits"`
	Semester      int            `db:"semester" json:"semester"`
	Prerequisites pq.StringArray `db:"prerequisites" json:"prerequisites"`
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	Semester int
	Search   string
}
