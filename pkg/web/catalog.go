package web

import (
	"github.com/google/uuid"
)

// Course is a catalog entry exposed through the GraphQL schema.
type Course struct {
	ID       string
	Title    string
	URL      string
	Abstract string
}

// Catalog is the read-only course list.
type Catalog struct {
	courses []Course
}

// NewCatalog makes a catalog of courses.
func NewCatalog(courses ...Course) *Catalog {
	return &Catalog{courses: courses}
}

// SampleCatalog returns the catalog of the stub application: one sample course with a
// fresh id on every call, so checks can't depend on it.
func SampleCatalog() *Catalog {
	return NewCatalog(Course{
		ID:       "course:" + uuid.NewString(),
		Title:    "Power Searching with Google",
		URL:      "/course",
		Abstract: "Learn how to search the web more effectively.",
	})
}

// Courses returns all courses in catalog order.
func (c *Catalog) Courses() []Course {
	res := make([]Course, len(c.courses))
	copy(res, c.courses)
	return res
}

// Course returns the course with id.
func (c *Catalog) Course(id string) (Course, bool) {
	for _, course := range c.courses {
		if course.ID == id {
			return course, true
		}
	}
	return Course{}, false
}
