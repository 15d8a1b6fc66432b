package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

type fakeCourseRepo struct {
	courses []models.Course
	err     error
	calls   int
}

func (f *fakeCourseRepo) ListAll(ctx context.Context) ([]models.Course, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.courses, nil
}

func sampleCourses() []models.Course {
	return []models.Course{
		{Code: "167390", Name: "Pensamiento Computacional", Credits: 3, Semester: 1},
		{Code: "157408", Name: "Algebra Lineal", Credits: 2, Semester: 1},
		{Code: "167392", Name: "Fundamentos de Programacion", Credits: 3, Semester: 2, Prerequisites: []string{"167390"}},
		{Code: "157400", Name: "Calculo Diferencial", Credits: 3, Semester: 2},
		{Code: "167394", Name: "Estructuras de Datos", Credits: 3, Semester: 3, Prerequisites: []string{"167392", "157408"}},
	}
}

func newLoadedCatalog(t *testing.T) *CatalogService {
	t.Helper()
	svc := NewCatalogService(&fakeCourseRepo{courses: sampleCourses()}, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestCatalogServiceLoad(t *testing.T) {
	svc := NewCatalogService(&fakeCourseRepo{courses: sampleCourses()}, nil)
	assert.False(t, svc.Ready())
	_, err := svc.Graph()
	require.Error(t, err)

	require.NoError(t, svc.Load(context.Background()))
	assert.True(t, svc.Ready())
	assert.False(t, svc.LoadedAt().IsZero())
	graph, err := svc.Graph()
	require.NoError(t, err)
	assert.Equal(t, 5, graph.Len())
}

func TestCatalogServiceLoadRejectsBrokenCatalog(t *testing.T) {
	repo := &fakeCourseRepo{courses: []models.Course{
		{Code: "A", Prerequisites: []string{"B"}},
		{Code: "B", Prerequisites: []string{"A"}},
	}}
	svc := NewCatalogService(repo, zap.NewNop())
	err := svc.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCatalogIntegrity))
	assert.False(t, svc.Ready())
}

func TestCatalogServiceLoadRepositoryFailure(t *testing.T) {
	svc := NewCatalogService(&fakeCourseRepo{err: errors.New("db down")}, zap.NewNop())
	err := svc.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceReloadKeepsPreviousGraphOnFailure(t *testing.T) {
	repo := &fakeCourseRepo{courses: sampleCourses()}
	svc := NewCatalogService(repo, zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))

	repo.courses = append(sampleCourses(), models.Course{Code: "999", Prerequisites: []string{"missing"}})
	_, err := svc.Reload(context.Background())
	require.Error(t, err)

	graph, err := svc.Graph()
	require.NoError(t, err)
	assert.Equal(t, 5, graph.Len())

	repo.courses = sampleCourses()[:2]
	count, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCatalogServiceList(t *testing.T) {
	svc := newLoadedCatalog(t)

	all, err := svc.List(models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	second, err := svc.List(models.CourseFilter{Semester: 2})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "167392", second[0].Code)

	searched, err := svc.List(models.CourseFilter{Search: "  algebra "})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "157408", searched[0].Code)

	_, err = svc.List(models.CourseFilter{Semester: -1})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCatalogServiceGet(t *testing.T) {
	svc := newLoadedCatalog(t)

	course, err := svc.Get(" 167394 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"167392", "157408"}, []string(course.Prerequisites))

	_, err = svc.Get("000000")
	assert.True(t, errors.Is(err, appErrors.ErrUnknownCourse))
}

func TestCatalogServiceSearch(t *testing.T) {
	svc := newLoadedCatalog(t)

	_, err := svc.Search("   ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	results, err := svc.Search("1574")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "157408", results[0].Code)
	assert.Equal(t, "157400", results[1].Code)

	results, err = svc.Search("PROGRAMACION")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "167392", results[0].Code)
}
