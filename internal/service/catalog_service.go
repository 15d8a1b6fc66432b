package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

type courseRepository interface {
	ListAll(ctx context.Context) ([]models.Course, error)
}

// CatalogService owns the in-memory prerequisite graph built from the courses table.
type CatalogService struct {
	repo   courseRepository
	logger *zap.Logger

	mu       sync.RWMutex
	graph    *planner.CourseGraph
	loadedAt time.Time
}

// NewCatalogService constructs a CatalogService. Call Load before serving traffic.
func NewCatalogService(repo courseRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

// Load reads the catalog and builds the graph. An inconsistent catalog fails
// with ErrCatalogIntegrity and leaves any previously loaded graph in place.
func (s *CatalogService) Load(ctx context.Context) error {
	courses, err := s.repo.ListAll(ctx)
	if err != nil {
		return appErrors.Internal(err, "failed to load course catalog")
	}
	graph, err := planner.NewCourseGraph(courses)
	if err != nil {
		if errors.Is(err, appErrors.ErrCatalogIntegrity) {
			return err
		}
		return appErrors.Internal(err, "failed to build course graph")
	}

	s.mu.Lock()
	s.graph = graph
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("course catalog loaded", zap.Int("courses", graph.Len()))
	return nil
}

// Reload rebuilds the graph from storage and returns the new course count.
func (s *CatalogService) Reload(ctx context.Context) (int, error) {
	if err := s.Load(ctx); err != nil {
		s.logger.Warn("catalog reload failed, keeping previous graph", zap.Error(err))
		return 0, err
	}
	graph, err := s.Graph()
	if err != nil {
		return 0, err
	}
	return graph.Len(), nil
}

// Ready reports whether a graph has been loaded.
func (s *CatalogService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph != nil
}

// LoadedAt returns when the current graph was built.
func (s *CatalogService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Graph returns the current prerequisite graph.
func (s *CatalogService) Graph() (*planner.CourseGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "course catalog not loaded")
	}
	return s.graph, nil
}

// List returns catalog courses, optionally filtered by semester and search term.
func (s *CatalogService) List(filter models.CourseFilter) ([]models.Course, error) {
	graph, err := s.Graph()
	if err != nil {
		return nil, err
	}
	if filter.Semester < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must not be negative")
	}
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]models.Course, 0)
	for _, course := range graph.Courses() {
		if filter.Semester > 0 && course.Semester != filter.Semester {
			continue
		}
		if term != "" && !matchesCourse(course, term) {
			continue
		}
		result = append(result, course)
	}
	return result, nil
}

// Get returns a course by code.
func (s *CatalogService) Get(code string) (models.Course, error) {
	graph, err := s.Graph()
	if err != nil {
		return models.Course{}, err
	}
	return graph.Course(normalizeCode(code))
}

// Search returns courses whose code or name contains query, case-insensitive.
// Code matches come first.
func (s *CatalogService) Search(query string) ([]models.Course, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search query is required")
	}
	courses, err := s.List(models.CourseFilter{Search: term})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(courses, func(i, j int) bool {
		ci := strings.Contains(strings.ToLower(courses[i].Code), term)
		cj := strings.Contains(strings.ToLower(courses[j].Code), term)
		return ci && !cj
	})
	return courses, nil
}

func matchesCourse(course models.Course, term string) bool {
	return strings.Contains(strings.ToLower(course.Code), term) ||
		strings.Contains(strings.ToLower(course.Name), term)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
