package planner

import (
	"fmt"
	"sort"

	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

// Rejection reasons reported by CanEnroll.
const (
	ReasonAlreadyApproved     = "already approved"
	ReasonAlreadyInProgress   = "already in progress"
	reasonMissingPrerequisite = "missing prerequisite: %s"
)

// EnrollmentState is a snapshot of a student's approved and in-progress courses.
// A code lives in at most one of the two sets.
type EnrollmentState struct {
	approved   map[string]struct{}
	inProgress map[string]struct{}
}

// NewEnrollmentState builds a snapshot, failing with ErrValidation when a code
// appears in both sets.
func NewEnrollmentState(approved, inProgress []string) (*EnrollmentState, error) {
	state := &EnrollmentState{
		approved:   make(map[string]struct{}, len(approved)),
		inProgress: make(map[string]struct{}, len(inProgress)),
	}
	for _, code := range approved {
		state.approved[code] = struct{}{}
	}
	for _, code := range inProgress {
		if _, dup := state.approved[code]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s is both approved and in progress", code))
		}
		state.inProgress[code] = struct{}{}
	}
	return state, nil
}

// IsApproved reports whether code has been approved.
func (s *EnrollmentState) IsApproved(code string) bool {
	_, ok := s.approved[code]
	return ok
}

// IsInProgress reports whether code is currently being taken.
func (s *EnrollmentState) IsInProgress(code string) bool {
	_, ok := s.inProgress[code]
	return ok
}

// Approved returns the approved codes sorted.
func (s *EnrollmentState) Approved() []string {
	return sortedKeys(s.approved)
}

// InProgress returns the in-progress codes sorted.
func (s *EnrollmentState) InProgress() []string {
	return sortedKeys(s.inProgress)
}

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed             bool   `json:"allowed"`
	Reason              string `json:"reason,omitempty"`
	MissingPrerequisite string `json:"missing_prerequisite,omitempty"`
}

// ChangeKind names a state transition the storage layer has to persist.
type ChangeKind string

const (
	ChangeEnroll   ChangeKind = "ENROLL"
	ChangeWithdraw ChangeKind = "WITHDRAW"
)

// EnrollmentChange is the instruction returned to the student-state provider.
type EnrollmentChange struct {
	Kind       ChangeKind `json:"kind"`
	CourseCode string     `json:"course_code"`
}

// EligibilityChecker gates enrollment against the prerequisite graph.
type EligibilityChecker struct {
	graph *CourseGraph
}

// NewEligibilityChecker constructs a checker bound to a catalog.
func NewEligibilityChecker(graph *CourseGraph) *EligibilityChecker {
	return &EligibilityChecker{graph: graph}
}

// CanEnroll decides whether the student may enroll in code. Only the first
// unmet prerequisite in declaration order is reported.
func (c *EligibilityChecker) CanEnroll(state *EnrollmentState, code string) (Decision, error) {
	prereqs, err := c.graph.PrerequisitesOf(code)
	if err != nil {
		return Decision{}, err
	}
	if state.IsApproved(code) {
		return Decision{Reason: ReasonAlreadyApproved}, nil
	}
	if state.IsInProgress(code) {
		return Decision{Reason: ReasonAlreadyInProgress}, nil
	}
	for _, req := range prereqs {
		if !state.IsApproved(req) {
			return Decision{Reason: fmt.Sprintf(reasonMissingPrerequisite, req), MissingPrerequisite: req}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

// Enroll checks eligibility and, when allowed, moves code into the in-progress set.
// A rejection is returned as ErrEnrollmentRejected carrying the reason.
func (c *EligibilityChecker) Enroll(state *EnrollmentState, code string) (EnrollmentChange, error) {
	decision, err := c.CanEnroll(state, code)
	if err != nil {
		return EnrollmentChange{}, err
	}
	if !decision.Allowed {
		rejected := appErrors.Clone(appErrors.ErrEnrollmentRejected, decision.Reason)
		if decision.MissingPrerequisite != "" {
			rejected = appErrors.WithDetail(rejected, "missing_prerequisite", decision.MissingPrerequisite)
		}
		return EnrollmentChange{}, rejected
	}
	state.inProgress[code] = struct{}{}
	return EnrollmentChange{Kind: ChangeEnroll, CourseCode: code}, nil
}

// Withdraw cancels an in-progress course. It returns false when the course is not in progress.
func (c *EligibilityChecker) Withdraw(state *EnrollmentState, code string) (EnrollmentChange, bool) {
	if !state.IsInProgress(code) {
		return EnrollmentChange{}, false
	}
	delete(state.inProgress, code)
	return EnrollmentChange{Kind: ChangeWithdraw, CourseCode: code}, true
}

// CourseStanding is the status-board classification of one course.
type CourseStanding string

const (
	StandingApproved   CourseStanding = "APPROVED"
	StandingInProgress CourseStanding = "IN_PROGRESS"
	StandingAvailable  CourseStanding = "AVAILABLE"
	StandingBlocked    CourseStanding = "BLOCKED"
)

// CourseStatus is one row of the catalog status board.
type CourseStatus struct {
	Code                 string         `json:"code"`
	Name                 string         `json:"name"`
	Semester             int            `json:"semester"`
	Credits              int            `json:"credits"`
	Standing             CourseStanding `json:"standing"`
	MissingPrerequisites []string       `json:"missing_prerequisites,omitempty"`
}

// CatalogStatus classifies every course for the student. Unlike CanEnroll it
// lists all missing prerequisites since it feeds a display, not a decision.
func CatalogStatus(graph *CourseGraph, state *EnrollmentState) []CourseStatus {
	result := make([]CourseStatus, 0, graph.Len())
	for _, code := range graph.order {
		course := graph.courses[code]
		status := CourseStatus{Code: code, Name: course.Name, Semester: course.Semester, Credits: course.Credits}
		switch {
		case state.IsApproved(code):
			status.Standing = StandingApproved
		case state.IsInProgress(code):
			status.Standing = StandingInProgress
		default:
			for _, req := range course.Prerequisites {
				if !state.IsApproved(req) {
					status.MissingPrerequisites = append(status.MissingPrerequisites, req)
				}
			}
			status.Standing = StandingAvailable
			if len(status.MissingPrerequisites) > 0 {
				status.Standing = StandingBlocked
			}
		}
		result = append(result, status)
	}
	return result
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
