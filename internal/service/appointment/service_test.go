package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/model"
	apperrors "github.com/medbook/booking-api/pkg/errors"
)

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
	createErr    error
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	copied := *a
	f.appointments[a.ID] = &copied
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAppointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	if _, ok := f.appointments[a.ID]; !ok {
		return apperrors.NotFound("appointment")
	}
	copied := *a
	f.appointments[a.ID] = &copied
	return nil
}

func (f *fakeAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.appointments[id]; !ok {
		return apperrors.NotFound("appointment")
	}
	delete(f.appointments, id)
	return nil
}

func (f *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range f.appointments {
		if filters.DoctorID != uuid.Nil && a.DoctorID != filters.DoctorID {
			continue
		}
		if filters.PatientID != uuid.Nil && a.PatientID != filters.PatientID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return f.List(ctx, &model.AppointmentFilters{PatientID: patientID})
}

func (f *fakeAppointmentRepo) ListUpcoming(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID && a.Status == model.AppointmentStatusScheduled && a.StartTime.After(time.Now()) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Status != model.AppointmentStatusCancelled &&
			!a.StartTime.Before(start) && a.StartTime.Before(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	for _, a := range f.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Status != model.AppointmentStatusCancelled &&
			a.StartTime.Before(end) && a.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointmentRepo) ListDueReminders(ctx context.Context, within time.Duration, limit int) ([]*model.Appointment, error) {
	var out []*model.Appointment
	cutoff := time.Now().Add(within)
	for _, a := range f.appointments {
		if !a.ReminderSent && a.StartTime.After(time.Now()) && !a.StartTime.After(cutoff) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	a, ok := f.appointments[id]
	if !ok {
		return apperrors.NotFound("appointment")
	}
	a.ReminderSent = true
	return nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*model.Doctor
}

func newFakeDoctorRepo(doctors ...*model.Doctor) *fakeDoctorRepo {
	f := &fakeDoctorRepo{doctors: make(map[uuid.UUID]*model.Doctor)}
	for _, d := range doctors {
		f.doctors[d.ID] = d
	}
	return f
}

func (f *fakeDoctorRepo) Create(ctx context.Context, d *model.Doctor) error {
	d.ID = uuid.New()
	f.doctors[d.ID] = d
	return nil
}

func (f *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok || !d.IsActive {
		return nil, apperrors.NotFound("doctor")
	}
	return d, nil
}

func (f *fakeDoctorRepo) FindByEmailOrLicense(ctx context.Context, email, licenseNumber string) (*model.Doctor, error) {
	for _, d := range f.doctors {
		if (email != "" && d.Email == email) || (licenseNumber != "" && d.LicenseNumber == licenseNumber) {
			return d, nil
		}
	}
	return nil, apperrors.NotFound("doctor")
}

func (f *fakeDoctorRepo) Update(ctx context.Context, d *model.Doctor) error {
	f.doctors[d.ID] = d
	return nil
}

func (f *fakeDoctorRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	d, ok := f.doctors[id]
	if !ok {
		return apperrors.NotFound("doctor")
	}
	d.IsActive = false
	return nil
}

func (f *fakeDoctorRepo) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, int64, error) {
	var out []*model.Doctor
	for _, d := range f.doctors {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeDoctorRepo) ListSpecializations(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, d := range f.doctors {
		if d.IsActive && !seen[d.Specialization] {
			seen[d.Specialization] = true
			out = append(out, d.Specialization)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	u.ID = uuid.New()
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func (f *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

var allWeekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func testDoctor() *model.Doctor {
	return &model.Doctor{
		Base:                model.Base{ID: uuid.New()},
		Name:                "Dr. Sarah Chen",
		Specialization:      "Cardiology",
		Email:               "sarah.chen@example.com",
		LicenseNumber:       "LIC-1001",
		ConsultationFee:     150,
		AvailableDays:       allWeekdays,
		StartTime:           "00:00",
		EndTime:             "23:59",
		AppointmentDuration: 30,
		IsActive:            true,
	}
}

func testPatient() *model.User {
	return &model.User{
		Base:  model.Base{ID: uuid.New()},
		Name:  "Alex Morgan",
		Email: "alex@example.com",
		Role:  model.RolePatient,
	}
}

// futureSlot returns a start/end pair comfortably in the future, clamped so
// the wall-clock window check cannot trip on an all-day doctor.
func futureSlot(dur time.Duration) (time.Time, time.Time) {
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	return start, start.Add(dur)
}

func newTestService(doctor *model.Doctor, patient *model.User) (*Service, *fakeAppointmentRepo) {
	repo := newFakeAppointmentRepo()
	svc := NewService(repo, newFakeDoctorRepo(doctor), newFakeUserRepo(patient), email.NoopService{})
	return svc, repo
}

func TestCreateAppointment(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, repo := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	created, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID:  doctor.ID,
		StartTime: start,
		EndTime:   end,
	}, patient)

	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, created.Status)
	assert.Equal(t, patient.ID, created.PatientID)
	assert.Equal(t, doctor.ConsultationFee, created.ConsultationFee)
	assert.Len(t, repo.appointments, 1)
}

func TestCreateAppointmentUnknownDoctor(t *testing.T) {
	patient := testPatient()
	svc, _ := newTestService(testDoctor(), patient)

	start, end := futureSlot(30 * time.Minute)
	_, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID:  uuid.New(),
		StartTime: start,
		EndTime:   end,
	}, patient)

	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCreateAppointmentConflict(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	req := &model.CreateAppointmentRequest{DoctorID: doctor.ID, StartTime: start, EndTime: end}

	_, err := svc.CreateAppointment(context.Background(), req, patient)
	require.NoError(t, err)

	// second booking overlaps the first by 15 minutes
	_, err = svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID:  doctor.ID,
		StartTime: start.Add(15 * time.Minute),
		EndTime:   end.Add(15 * time.Minute),
	}, patient)

	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCreateAppointmentBackToBackAllowed(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	_, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)
	require.NoError(t, err)

	// a slot starting exactly when the previous one ends does not overlap
	_, err = svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: end, EndTime: end.Add(30 * time.Minute),
	}, patient)
	assert.NoError(t, err)
}

func TestCreateAppointmentTimeValidation(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, _ := futureSlot(time.Hour)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"in the past", time.Now().Add(-2 * time.Hour), time.Now().Add(-time.Hour)},
		{"start after end", start.Add(time.Hour), start},
		{"start equals end", start, start},
		{"too far ahead", time.Now().AddDate(0, 7, 0), time.Now().AddDate(0, 7, 0).Add(30 * time.Minute)},
		{"too short", start, start.Add(10 * time.Minute)},
		{"too long", start, start.Add(4 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
				DoctorID:  doctor.ID,
				StartTime: tt.start,
				EndTime:   tt.end,
			}, patient)
			assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest), "expected bad request, got %v", err)
		})
	}
}

func TestCreateAppointmentOutsideWorkingDays(t *testing.T) {
	doctor := testDoctor()
	doctor.AvailableDays = []string{} // never available
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	_, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
	assert.Contains(t, err.Error(), "not available on")
}

func TestCreateAppointmentOutsideWorkingHours(t *testing.T) {
	doctor := testDoctor()
	doctor.StartTime = "09:00"
	doctor.EndTime = "09:30" // tiny window no hour-aligned slot fits
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start := time.Now().Add(48 * time.Hour)
	start = time.Date(start.Year(), start.Month(), start.Day(), 14, 0, 0, 0, time.Local)
	_, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: start.Add(30 * time.Minute),
	}, patient)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "available hours")
}

func TestGetAppointmentOwnership(t *testing.T) {
	doctor := testDoctor()
	owner := testPatient()
	svc, _ := newTestService(doctor, owner)

	start, end := futureSlot(30 * time.Minute)
	created, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, owner)
	require.NoError(t, err)

	other := testPatient()
	other.ID = uuid.New()
	_, err = svc.GetAppointment(context.Background(), created.ID, other)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	admin := &model.User{Base: model.Base{ID: uuid.New()}, Role: model.RoleAdmin}
	got, err := svc.GetAppointment(context.Background(), created.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUpdateAppointmentReschedule(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	created, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)
	require.NoError(t, err)

	newStart := start.Add(2 * time.Hour)
	newEnd := newStart.Add(30 * time.Minute)
	updated, err := svc.UpdateAppointment(context.Background(), created.ID, &model.UpdateAppointmentRequest{
		StartTime: &newStart,
		EndTime:   &newEnd,
	}, patient)

	require.NoError(t, err)
	assert.True(t, updated.StartTime.Equal(newStart))
}

func TestUpdateAppointmentRescheduleConflict(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	first, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)
	require.NoError(t, err)

	secondStart := start.Add(2 * time.Hour)
	secondEnd := secondStart.Add(30 * time.Minute)
	second, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: secondStart, EndTime: secondEnd,
	}, patient)
	require.NoError(t, err)

	// moving the second onto the first must be rejected
	_, err = svc.UpdateAppointment(context.Background(), second.ID, &model.UpdateAppointmentRequest{
		StartTime: &first.StartTime,
		EndTime:   &first.EndTime,
	}, patient)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	// re-saving the first at its own time is not a self-conflict
	_, err = svc.UpdateAppointment(context.Background(), first.ID, &model.UpdateAppointmentRequest{
		StartTime: &first.StartTime,
		EndTime:   &first.EndTime,
	}, patient)
	assert.NoError(t, err)
}

func TestUpdateAppointmentInvalidStatus(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	created, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)
	require.NoError(t, err)

	bogus := model.AppointmentStatus("POSTPONED")
	_, err = svc.UpdateAppointment(context.Background(), created.ID, &model.UpdateAppointmentRequest{
		Status: &bogus,
	}, patient)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
}

func TestUpdatePastAppointment(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, repo := newTestService(doctor, patient)

	past := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		StartTime: time.Now().Add(-2 * time.Hour),
		EndTime:   time.Now().Add(-time.Hour),
		Status:    model.AppointmentStatusScheduled,
	}
	repo.appointments[past.ID] = past

	notes := "follow-up"
	_, err := svc.UpdateAppointment(context.Background(), past.ID, &model.UpdateAppointmentRequest{
		Notes: &notes,
	}, patient)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
}

func TestCancelAppointment(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	created, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)
	require.NoError(t, err)

	cancelled, err := svc.CancelAppointment(context.Background(), created.ID, patient)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	// cancelling twice is rejected
	_, err = svc.CancelAppointment(context.Background(), created.ID, patient)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
}

func TestCancelAppointmentTooLate(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, repo := newTestService(doctor, patient)

	soon := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		StartTime: time.Now().Add(2 * time.Hour),
		EndTime:   time.Now().Add(2*time.Hour + 30*time.Minute),
		Status:    model.AppointmentStatusScheduled,
	}
	repo.appointments[soon.ID] = soon

	_, err := svc.CancelAppointment(context.Background(), soon.ID, patient)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
	assert.Contains(t, err.Error(), "24 hours")
}

func TestCancelCompletedAppointment(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, repo := newTestService(doctor, patient)

	done := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		StartTime: time.Now().Add(48 * time.Hour),
		EndTime:   time.Now().Add(48*time.Hour + 30*time.Minute),
		Status:    model.AppointmentStatusCompleted,
	}
	repo.appointments[done.ID] = done

	_, err := svc.CancelAppointment(context.Background(), done.ID, patient)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
}

func TestCancelAppointmentOwnership(t *testing.T) {
	doctor := testDoctor()
	owner := testPatient()
	svc, _ := newTestService(doctor, owner)

	start, end := futureSlot(30 * time.Minute)
	created, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, owner)
	require.NoError(t, err)

	other := testPatient()
	other.ID = uuid.New()
	_, err = svc.CancelAppointment(context.Background(), created.ID, other)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestDeleteAppointment(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, repo := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	created, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAppointment(context.Background(), created.ID))
	assert.Empty(t, repo.appointments)

	err = svc.DeleteAppointment(context.Background(), created.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListUserAppointments(t *testing.T) {
	doctor := testDoctor()
	patient := testPatient()
	svc, _ := newTestService(doctor, patient)

	start, end := futureSlot(30 * time.Minute)
	_, err := svc.CreateAppointment(context.Background(), &model.CreateAppointmentRequest{
		DoctorID: doctor.ID, StartTime: start, EndTime: end,
	}, patient)
	require.NoError(t, err)

	mine, err := svc.ListUserAppointments(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.ListUserAppointments(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
