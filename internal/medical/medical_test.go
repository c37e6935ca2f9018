package medical

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/validation"
)

type memRepo struct {
	records map[uuid.UUID]*Record
}

func (m *memRepo) GetRecordByID(_ context.Context, clinicID, id uuid.UUID) (*Record, error) {
	r, ok := m.records[id]
	if !ok || r.ClinicID != clinicID || !r.Live() {
		return nil, ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) ListRecords(_ context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]Record, error) {
	var out []Record
	for _, r := range m.records {
		if r.ClinicID == clinicID && r.Live() && (petID == nil || r.PetID == *petID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRepo) CreateRecord(_ context.Context, r *Record) error {
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *memRepo) UpdateRecord(_ context.Context, r *Record) error {
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *memRepo) SoftDeleteRecord(_ context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	r, ok := m.records[id]
	if !ok || r.ClinicID != clinicID {
		return false, ErrRecordNotFound
	}
	if !r.Live() {
		return false, nil
	}
	r.DeletedAt, r.UpdatedAt = &now, now
	return true, nil
}

func newTestService() (*Service, *memRepo) {
	repo := &memRepo{records: map[uuid.UUID]*Record{}}
	return NewService(repo, zap.NewNop()), repo
}

func day(d int) time.Time {
	return time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateValidation(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), Input{})
	ve, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "required", ve.Fields["pet_id"])
	assert.Equal(t, "required", ve.Fields["vet_id"])
	assert.Equal(t, "required", ve.Fields["visit_date"])

	before := day(1)
	_, err = svc.Create(context.Background(), uuid.New(), Input{
		PetID: uuid.New(), VetID: uuid.New(), VisitDate: day(2), FollowUpDate: &before,
	})
	ve, ok = validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "must_not_be_before_visit_date", ve.Fields["follow_up_date"])
	assert.Empty(t, repo.records)
}

func TestRecordLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	clinicID, petID := uuid.New(), uuid.New()

	r, err := svc.Create(ctx, clinicID, Input{
		PetID: petID, VetID: uuid.New(), VisitDate: day(3), Symptoms: " limping ", Diagnosis: "",
	})
	require.NoError(t, err)
	require.NotNil(t, r.Symptoms)
	assert.Equal(t, "limping", *r.Symptoms)
	assert.Nil(t, r.Diagnosis)

	_, err = svc.Create(ctx, clinicID, Input{PetID: uuid.New(), VetID: uuid.New(), VisitDate: day(3)})
	require.NoError(t, err)

	list, err := svc.List(ctx, clinicID, &petID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := svc.Update(ctx, clinicID, r.ID, Input{
		PetID: petID, VetID: r.VetID, VisitDate: day(3), Diagnosis: "sprain",
	})
	require.NoError(t, err)
	assert.Equal(t, "sprain", *updated.Diagnosis)
	assert.False(t, updated.UpdatedAt.Before(r.UpdatedAt))

	require.NoError(t, svc.Delete(ctx, clinicID, r.ID))
	_, err = svc.Get(ctx, clinicID, r.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	err = svc.Delete(ctx, uuid.New(), r.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
