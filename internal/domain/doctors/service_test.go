package doctors

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/pkg/apperr"
)

type mockRepo struct {
	items map[uuid.UUID]*Doctor
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Doctor)}
}

func (m *mockRepo) add(name, specialty string) *Doctor {
	d := &Doctor{
		ID:        uuid.New(),
		FullName:  name,
		Specialty: specialty,
		CreatedAt: time.Now().UTC(),
	}
	m.items[d.ID] = d
	return d
}

func (m *mockRepo) List(_ context.Context, specialty string, limit, offset int) ([]*Doctor, int, error) {
	matches := []*Doctor{}
	for _, d := range m.items {
		if specialty != "" && !strings.Contains(strings.ToLower(d.Specialty), strings.ToLower(specialty)) {
			continue
		}
		matches = append(matches, d)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].FullName < matches[j].FullName })

	total := len(matches)
	if offset >= len(matches) {
		return []*Doctor{}, total, nil
	}
	matches = matches[offset:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("doctor")
	}
	cp := *d
	return &cp, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func TestList(t *testing.T) {
	svc, repo := newTestService()
	repo.add("Dr. Elena Petrova", "Cardiology")
	repo.add("Dr. Mark Chen", "Dermatology")
	repo.add("Dr. Aisha Okafor", "Cardiology")

	doctors, total, err := svc.List(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(doctors) != 3 {
		t.Errorf("got %d doctors (total %d), want 3", len(doctors), total)
	}
	if doctors[0].FullName != "Dr. Aisha Okafor" {
		t.Errorf("expected name ordering, first = %q", doctors[0].FullName)
	}
}

func TestList_SpecialtyFilter(t *testing.T) {
	svc, repo := newTestService()
	repo.add("Dr. Elena Petrova", "Cardiology")
	repo.add("Dr. Mark Chen", "Dermatology")

	doctors, total, err := svc.List(context.Background(), "  cardio ", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(doctors) != 1 {
		t.Fatalf("got %d doctors (total %d), want 1", len(doctors), total)
	}
	if doctors[0].Specialty != "Cardiology" {
		t.Errorf("specialty = %q", doctors[0].Specialty)
	}
}

func TestGet(t *testing.T) {
	svc, repo := newTestService()
	seeded := repo.add("Dr. Elena Petrova", "Cardiology")

	d, err := svc.Get(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.FullName != "Dr. Elena Petrova" {
		t.Errorf("name = %q", d.FullName)
	}
}

func TestGet_Unknown(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Get(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}
