// Package repotest holds the behaviour every repository backend must share.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stores is one backend under test. The tables must be empty.
type Stores struct {
	Transactor attendance.Transactor
	Ledger     attendance.LedgerRepository
	Persons    person.PersonRepository
	Classrooms classroom.ClassroomRepository
}

var day = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// Run exercises s against the repository contracts.
func Run(t *testing.T, s Stores) {
	ctx := context.Background()

	room, err := s.Classrooms.Create(ctx, classroom.Classroom{Name: "A-101", Building: 1, DeviceID: "esp32-a"})
	require.NoError(t, err)
	other, err := s.Classrooms.Create(ctx, classroom.Classroom{Name: "B-202", Building: 2, DeviceID: "esp32-b"})
	require.NoError(t, err)

	teacher := mustCreatePerson(t, s, person.Person{Identity: "V-0100", Name: "Teacher One", Role: person.RoleTeacher, ClassroomID: &room.ID, Email: ptr(" Teacher@Example.com "), Active: true})
	alice := mustCreatePerson(t, s, person.Person{Identity: "V-101", Name: "Alice", Role: person.RoleStudent, ClassroomID: &room.ID, Active: true})
	bob := mustCreatePerson(t, s, person.Person{Identity: "V-102", Name: "Bob", Role: person.RoleStudent, ClassroomID: &room.ID, Active: true})
	mustCreatePerson(t, s, person.Person{Identity: "V-103", Name: "Carol", Role: person.RoleStudent, ClassroomID: &room.ID, Active: false})
	mustCreatePerson(t, s, person.Person{Identity: "V-201", Name: "Dave", Role: person.RoleStudent, ClassroomID: &other.ID, Active: true})

	t.Run("classrooms", func(t *testing.T) {
		got, err := s.Classrooms.GetByDeviceID(ctx, "esp32-a")
		require.NoError(t, err)
		assert.Equal(t, room.ID, got.ID)
		assert.Equal(t, classroom.StatusDisconnected, got.Status)

		_, err = s.Classrooms.GetByDeviceID(ctx, "esp32-z")
		assert.ErrorIs(t, err, classroom.ErrDeviceNotRegistered)
		_, err = s.Classrooms.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, classroom.ErrClassroomNotFound)

		_, err = s.Classrooms.Create(ctx, classroom.Classroom{Name: "Dup", DeviceID: "esp32-a"})
		assert.ErrorIs(t, err, classroom.ErrDeviceExists)

		seen := day.Add(8 * time.Hour)
		require.NoError(t, s.Classrooms.TouchDevice(ctx, "esp32-a", seen))
		got, err = s.Classrooms.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, classroom.StatusActive, got.Status)
		require.NotNil(t, got.LastSeenAt)
		assert.True(t, seen.Equal(*got.LastSeenAt))

		assert.ErrorIs(t, s.Classrooms.TouchDevice(ctx, "esp32-z", seen), classroom.ErrDeviceNotRegistered)

		n, err := s.Classrooms.MarkDisconnected(ctx, seen.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		list, err := s.Classrooms.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("persons", func(t *testing.T) {
		got, err := s.Persons.Resolve(ctx, "V-100")
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, got.ID)

		_, err = s.Persons.Resolve(ctx, "V-0100")
		assert.ErrorIs(t, err, person.ErrPersonNotFound, "identities are stored normalized")

		got, err = s.Persons.GetByEmail(ctx, "teacher@example.com")
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, got.ID)

		_, err = s.Persons.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, person.ErrPersonNotFound)

		students, err := s.Persons.StudentsOf(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, alice.ID, students[0].ID)
		assert.Equal(t, bob.ID, students[1].ID)

		_, err = s.Persons.Create(ctx, person.Person{Identity: "V-00101", Name: "Alias", Role: person.RoleStudent, Active: true})
		assert.ErrorIs(t, err, person.ErrIdentityExists)
	})

	t.Run("ledger", func(t *testing.T) {
		entry := newRecord(teacher, room.ID, attendance.RecordTypeEntry, attendance.StatusOnTime, 8)
		created, err := s.Ledger.Insert(ctx, entry)
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())

		_, err = s.Ledger.Insert(ctx, newRecord(teacher, room.ID, attendance.RecordTypeEntry, attendance.StatusOnTime, 9))
		assert.ErrorIs(t, err, attendance.ErrDuplicateRecord)

		found, err := s.Ledger.FindRecord(ctx, teacher.ID, "2024-03-04", attendance.RecordTypeEntry)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, entry.ID, found.ID)
		assert.Equal(t, "Teacher One", *found.PersonName)
		assert.True(t, day.Equal(found.Date))

		missing, err := s.Ledger.FindRecord(ctx, teacher.ID, "2024-03-04", attendance.RecordTypeExit)
		require.NoError(t, err)
		assert.Nil(t, missing)

		missing, err = s.Ledger.FindRecord(ctx, teacher.ID, "2024-03-05", attendance.RecordTypeEntry)
		require.NoError(t, err)
		assert.Nil(t, missing)

		late := newRecord(alice, room.ID, attendance.RecordTypeEntry, attendance.StatusLate, 8)
		_, err = s.Ledger.Insert(ctx, late)
		require.NoError(t, err)

		inserted, err := s.Ledger.InsertIfAbsent(ctx, newRecord(alice, room.ID, attendance.RecordTypeEntry, attendance.StatusAbsent, 9))
		require.NoError(t, err)
		assert.False(t, inserted)

		absent := newRecord(bob, room.ID, attendance.RecordTypeEntry, attendance.StatusAbsent, 9)
		inserted, err = s.Ledger.InsertIfAbsent(ctx, absent)
		require.NoError(t, err)
		assert.True(t, inserted)

		got, err := s.Ledger.GetByID(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusLate, got.Status)
		_, err = s.Ledger.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, attendance.ErrRecordNotFound)

		require.NoError(t, s.Ledger.UpdateStatus(ctx, absent.ID, attendance.StatusJustified, ptr("medical")))
		got, err = s.Ledger.GetByID(ctx, absent.ID)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusJustified, got.Status)
		assert.Equal(t, "medical", *got.Note)
		assert.ErrorIs(t, s.Ledger.UpdateStatus(ctx, "missing", attendance.StatusJustified, nil), attendance.ErrRecordNotFound)

		filter := attendance.RecordFilter{Page: 1, Limit: 2, SortBy: "scanned_at", SortOrder: "asc"}
		records, total, err := s.Ledger.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, records, 2)
		assert.Equal(t, attendance.StatusOnTime, records[0].Status)

		filter = attendance.RecordFilter{Page: 1, Limit: 10, Search: ptr("ali"), Role: ptr("student"), Date: ptr("2024-03-04")}
		records, total, err = s.Ledger.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, records, 1)
		assert.Equal(t, alice.ID, records[0].PersonID)

		filter = attendance.RecordFilter{Page: 1, Limit: 10, Status: ptr("justified"), StartDate: ptr("2024-03-01"), EndDate: ptr("2024-03-31")}
		_, total, err = s.Ledger.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("transactions", func(t *testing.T) {
		failure := errors.New("abort")
		exit := newRecord(teacher, room.ID, attendance.RecordTypeExit, attendance.StatusCompleted, 10)

		err := s.Transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
			if _, err := s.Ledger.Insert(txCtx, exit); err != nil {
				return err
			}
			return failure
		})
		assert.ErrorIs(t, err, failure)

		found, err := s.Ledger.FindRecord(ctx, teacher.ID, "2024-03-04", attendance.RecordTypeExit)
		require.NoError(t, err)
		assert.Nil(t, found, "rolled back")

		err = s.Transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
			if _, err := s.Ledger.Insert(txCtx, exit); err != nil {
				return err
			}
			_, err := s.Ledger.InsertIfAbsent(txCtx, newRecord(alice, room.ID, attendance.RecordTypeEntry, attendance.StatusAbsent, 10))
			return err
		})
		require.NoError(t, err)

		found, err = s.Ledger.FindRecord(ctx, teacher.ID, "2024-03-04", attendance.RecordTypeExit)
		require.NoError(t, err)
		assert.NotNil(t, found)
	})

	t.Run("directory", func(t *testing.T) {
		persons, total, err := s.Persons.List(ctx, person.PersonFilter{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, persons, 2)
		assert.Equal(t, "Alice", persons[0].Name)
		assert.Equal(t, "Bob", persons[1].Name)

		persons, total, err = s.Persons.List(ctx, person.PersonFilter{Page: 1, Limit: 10, Role: ptr("student"), ClassroomID: &room.ID, Active: ptr(true)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, persons, 2)

		persons, total, err = s.Persons.List(ctx, person.PersonFilter{Page: 1, Limit: 10, Search: ptr("V-20")})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, persons, 1)
		assert.Equal(t, "Dave", persons[0].Name)

		persons, _, err = s.Persons.List(ctx, person.PersonFilter{Page: 3, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, persons)

		erin := mustCreatePerson(t, s, person.Person{Identity: "V-301", Name: "Erin", Role: person.RoleStudent, ClassroomID: &other.ID, Active: true})

		erin.Identity = "V-0302"
		erin.Name = "Erin Soto"
		erin.ClassroomID = &room.ID
		updated, err := s.Persons.Update(ctx, erin)
		require.NoError(t, err)
		assert.Equal(t, "V-302", updated.Identity)
		assert.Equal(t, "Erin Soto", updated.Name)
		assert.Equal(t, room.ID, updated.Classroom())
		assert.True(t, erin.CreatedAt.Equal(updated.CreatedAt))

		got, err := s.Persons.Resolve(ctx, "V-302")
		require.NoError(t, err)
		assert.Equal(t, erin.ID, got.ID)
		_, err = s.Persons.Resolve(ctx, "V-301")
		assert.ErrorIs(t, err, person.ErrPersonNotFound)

		clash := updated
		clash.Identity = "V-101"
		_, err = s.Persons.Update(ctx, clash)
		assert.ErrorIs(t, err, person.ErrIdentityExists)

		clash = updated
		clash.Role = person.RoleTeacher
		clash.Email = ptr("TEACHER@example.com")
		_, err = s.Persons.Update(ctx, clash)
		assert.ErrorIs(t, err, person.ErrEmailExists)

		missing := updated
		missing.ID = "missing"
		missing.Identity = "V-999"
		_, err = s.Persons.Update(ctx, missing)
		assert.ErrorIs(t, err, person.ErrPersonNotFound)

		require.NoError(t, s.Persons.SetActive(ctx, alice.ID, false))
		got, err = s.Persons.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)

		students, err := s.Persons.StudentsOf(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, bob.ID, students[0].ID)
		assert.Equal(t, erin.ID, students[1].ID)

		_, total, err = s.Ledger.List(ctx, attendance.RecordFilter{Page: 1, Limit: 10, PersonID: &alice.ID})
		require.NoError(t, err)
		assert.NotZero(t, total, "deactivation keeps ledger history")

		assert.ErrorIs(t, s.Persons.SetActive(ctx, "missing", false), person.ErrPersonNotFound)
	})
}

func mustCreatePerson(t *testing.T, s Stores, p person.Person) person.Person {
	t.Helper()
	created, err := s.Persons.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func newRecord(p person.Person, classroomID string, recordType attendance.RecordType, status attendance.Status, hour int) attendance.Record {
	return attendance.Record{
		ID:          uuid.Must(uuid.NewV7()).String(),
		PersonID:    p.ID,
		Role:        p.Role,
		ClassroomID: classroomID,
		Type:        recordType,
		Status:      status,
		Date:        day,
		ScannedAt:   day.Add(time.Duration(hour) * time.Hour),
	}
}
