package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

type mockClassRepo struct {
	classes   map[string]models.Class
	enrolled  map[string]int
	listCalls int
	active    map[string]bool
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	m.listCalls++
	var list []models.ClassDetail
	for _, class := range m.classes {
		if filter.ActiveOnly && !class.Active {
			continue
		}
		list = append(list, models.ClassDetail{Class: class, EnrolledCount: m.enrolled[class.ID]})
	}
	return list, len(list), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		return &class, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if class, ok := m.classes[id]; ok {
		return &models.ClassDetail{Class: class, EnrolledCount: m.enrolled[class.ID]}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = make(map[string]models.Class)
	}
	if class.ID == "" {
		class.ID = "new-class"
	}
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	class, ok := m.classes[id]
	if !ok {
		return false, nil
	}
	class.Active = active
	m.classes[id] = class
	if m.active == nil {
		m.active = make(map[string]bool)
	}
	m.active[id] = active
	return true, nil
}

type mockSeatCounter struct {
	counts map[string]int
}

func (m *mockSeatCounter) CountActive(ctx context.Context, classID string) (int, error) {
	return m.counts[classID], nil
}

type mockCatalogCache struct {
	hits    int
	deletes int
	payload []models.ClassDetail
	hasData bool
}

func (m *mockCatalogCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !m.hasData {
		return false, nil
	}
	m.hits++
	*(dest.(*[]models.ClassDetail)) = m.payload
	return true, nil
}

func (m *mockCatalogCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.payload = value.([]models.ClassDetail)
	m.hasData = true
	return nil
}

func (m *mockCatalogCache) Delete(ctx context.Context, keys ...string) error {
	m.deletes++
	m.hasData = false
	return nil
}

func validCreateClassRequest() CreateClassRequest {
	return CreateClassRequest{
		Name:        "Monday Ninja",
		ProgramType: "ninja",
		DayOfWeek:   "Monday",
		StartTime:   "16:00",
		EndTime:     "17:00",
		Capacity:    12,
	}
}

func TestCreateClassValidation(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, &mockSeatCounter{}, nil, 0, nil, nil)

	req := validCreateClassRequest()
	req.DayOfWeek = "someday"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation.Code))

	req = validCreateClassRequest()
	req.ProgramType = "parkour"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)

	req = validCreateClassRequest()
	req.AgeMin = intPtr(9)
	req.AgeMax = intPtr(6)
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)

	req = validCreateClassRequest()
	req.Capacity = 0
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
}

func TestCreateClassNormalisesAndActivates(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, &mockSeatCounter{}, nil, 0, nil, nil)

	class, err := svc.Create(context.Background(), validCreateClassRequest())
	require.NoError(t, err)
	assert.Equal(t, "monday", class.DayOfWeek)
	assert.Equal(t, models.ProgramNinja, class.ProgramType)
	assert.True(t, class.Active)
}

func TestDeactivateBlockedWhileStudentsEnrolled(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{
		"c1": {ID: "c1", Active: true},
	}}
	seats := &mockSeatCounter{counts: map[string]int{"c1": 3}}
	svc := NewClassService(repo, seats, nil, 0, nil, nil)

	err := svc.Deactivate(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict.Code))
	assert.True(t, repo.classes["c1"].Active)
}

func TestDeactivateEmptyClass(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{
		"c1": {ID: "c1", Active: true},
	}}
	seats := &mockSeatCounter{counts: map[string]int{}}
	cache := &mockCatalogCache{hasData: true}
	svc := NewClassService(repo, seats, cache, time.Minute, nil, nil)

	err := svc.Deactivate(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, repo.classes["c1"].Active)
	assert.Equal(t, 1, cache.deletes)
}

func TestListPublicServesFromCache(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{
		"c1": {ID: "c1", DayOfWeek: "monday", Active: true},
		"c2": {ID: "c2", DayOfWeek: "tuesday", Active: true},
	}}
	cache := &mockCatalogCache{}
	svc := NewClassService(repo, &mockSeatCounter{}, cache, time.Minute, nil, nil)

	// Cold cache: reads the store and fills the cache.
	classes, err := svc.ListPublic(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, classes, 2)
	assert.Equal(t, 1, repo.listCalls)

	// Warm cache: no second store read, day filter applies in memory.
	classes, err = svc.ListPublic(context.Background(), "Monday")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "c1", classes[0].ID)
	assert.Equal(t, 1, repo.listCalls)
}

func TestGetClassNotFound(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, &mockSeatCounter{}, nil, 0, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}
