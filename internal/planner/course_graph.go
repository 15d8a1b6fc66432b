package planner

import (
	"fmt"
	"strings"

	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

// CourseGraph is the read-only prerequisite graph of the curriculum.
// It is safe for concurrent readers once constructed.
type CourseGraph struct {
	courses map[string]models.Course
	order   []string
}

// NewCourseGraph validates the catalog and builds the graph. Duplicate codes,
// dangling prerequisite references and cycles fail with ErrCatalogIntegrity.
func NewCourseGraph(courses []models.Course) (*CourseGraph, error) {
	g := &CourseGraph{
		courses: make(map[string]models.Course, len(courses)),
		order:   make([]string, 0, len(courses)),
	}
	for _, course := range courses {
		code := strings.TrimSpace(course.Code)
		if code == "" {
			return nil, appErrors.Clone(appErrors.ErrCatalogIntegrity, "course with empty code")
		}
		if _, exists := g.courses[code]; exists {
			return nil, appErrors.Clone(appErrors.ErrCatalogIntegrity, fmt.Sprintf("duplicate course code %s", code))
		}
		course.Code = code
		prereqs := make([]string, 0, len(course.Prerequisites))
		seen := make(map[string]bool, len(course.Prerequisites))
		for _, req := range course.Prerequisites {
			req = strings.TrimSpace(req)
			if req == "" || seen[req] {
				continue
			}
			seen[req] = true
			prereqs = append(prereqs, req)
		}
		course.Prerequisites = prereqs
		g.courses[code] = course
		g.order = append(g.order, code)
	}

	for _, code := range g.order {
		for _, req := range g.courses[code].Prerequisites {
			if req == code {
				return nil, appErrors.Clone(appErrors.ErrCatalogIntegrity, fmt.Sprintf("course %s lists itself as prerequisite", code))
			}
			if _, ok := g.courses[req]; !ok {
				return nil, appErrors.Clone(appErrors.ErrCatalogIntegrity, fmt.Sprintf("course %s references unknown prerequisite %s", code, req))
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, appErrors.Clone(appErrors.ErrCatalogIntegrity, fmt.Sprintf("prerequisite cycle detected: %s", strings.Join(cycle, " -> ")))
	}
	return g, nil
}

// Len returns the number of courses in the catalog.
func (g *CourseGraph) Len() int {
	return len(g.order)
}

// Has reports whether code exists in the catalog.
func (g *CourseGraph) Has(code string) bool {
	_, ok := g.courses[code]
	return ok
}

// Course returns the catalog entry for code.
func (g *CourseGraph) Course(code string) (models.Course, error) {
	course, ok := g.courses[code]
	if !ok {
		return models.Course{}, appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("course %s not found", code))
	}
	return copyCourse(course), nil
}

// Courses returns every course in declaration order.
func (g *CourseGraph) Courses() []models.Course {
	result := make([]models.Course, 0, len(g.order))
	for _, code := range g.order {
		result = append(result, copyCourse(g.courses[code]))
	}
	return result
}

// PrerequisitesOf returns the prerequisite codes of a course in declaration order.
func (g *CourseGraph) PrerequisitesOf(code string) ([]string, error) {
	course, ok := g.courses[code]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("course %s not found", code))
	}
	result := make([]string, len(course.Prerequisites))
	copy(result, course.Prerequisites)
	return result, nil
}

// IsAcyclic reports whether the prerequisite relation has no cycle.
func (g *CourseGraph) IsAcyclic() bool {
	return g.findCycle() == nil
}

const (
	unvisited = iota
	visiting
	visited
)

// findCycle runs an iterative DFS in declaration order and returns the first
// cycle found as a path of codes ending where it started.
func (g *CourseGraph) findCycle() []string {
	state := make(map[string]int, len(g.order))
	type frame struct {
		code string
		next int
	}
	for _, root := range g.order {
		if state[root] != unvisited {
			continue
		}
		stack := []frame{{code: root}}
		state[root] = visiting
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			prereqs := g.courses[top.code].Prerequisites
			if top.next >= len(prereqs) {
				state[top.code] = visited
				stack = stack[:len(stack)-1]
				continue
			}
			req := prereqs[top.next]
			top.next++
			switch state[req] {
			case visiting:
				path := []string{}
				for i := range stack {
					if stack[i].code == req || len(path) > 0 {
						path = append(path, stack[i].code)
					}
				}
				return append(path, req)
			case unvisited:
				state[req] = visiting
				stack = append(stack, frame{code: req})
			}
		}
	}
	return nil
}

func copyCourse(course models.Course) models.Course {
	prereqs := make([]string, len(course.Prerequisites))
	copy(prereqs, course.Prerequisites)
	course.Prerequisites = prereqs
	return course
}
