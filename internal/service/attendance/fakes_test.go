package attendance

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
)

var errStoreDown = errors.New("store unavailable")

type ledgerKey struct {
	personID string
	date     string
	kind     attendance.RecordType
}

// memLedger is an in-memory ledger. WithinTransaction restores the previous
// contents when fn fails.
type memLedger struct {
	mu      sync.Mutex
	records map[ledgerKey]attendance.Record
	order   []ledgerKey

	// failInsert makes Insert and InsertIfAbsent fail for matching records.
	failInsert func(rec attendance.Record) bool
	failFind   bool
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[ledgerKey]attendance.Record)}
}

func keyOf(rec attendance.Record) ledgerKey {
	return ledgerKey{personID: rec.PersonID, date: rec.Date.Format(dateLayout), kind: rec.Type}
}

func (m *memLedger) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	saved := make(map[ledgerKey]attendance.Record, len(m.records))
	for k, v := range m.records {
		saved[k] = v
	}
	savedOrder := append([]ledgerKey(nil), m.order...)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.records = saved
		m.order = savedOrder
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memLedger) FindRecord(ctx context.Context, personID string, date string, recordType attendance.RecordType) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFind {
		return nil, errStoreDown
	}
	rec, ok := m.records[ledgerKey{personID: personID, date: date, kind: recordType}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memLedger) Insert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInsert != nil && m.failInsert(rec) {
		return attendance.Record{}, errStoreDown
	}
	k := keyOf(rec)
	if _, ok := m.records[k]; ok {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	rec.CreatedAt = rec.ScannedAt
	m.records[k] = rec
	m.order = append(m.order, k)
	return rec, nil
}

func (m *memLedger) InsertIfAbsent(ctx context.Context, rec attendance.Record) (bool, error) {
	_, err := m.Insert(ctx, rec)
	if errors.Is(err, attendance.ErrDuplicateRecord) {
		return false, nil
	}
	return err == nil, err
}

func (m *memLedger) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (m *memLedger) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []attendance.Record
	for _, k := range m.order {
		rec := m.records[k]
		if filter.ClassroomID != nil && rec.ClassroomID != *filter.ClassroomID {
			continue
		}
		if filter.Status != nil && string(rec.Status) != *filter.Status {
			continue
		}
		all = append(all, rec)
	}

	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(all) {
		return []attendance.Record{}, total, nil
	}
	end := min(start+filter.Limit, len(all))
	return all[start:end], total, nil
}

func (m *memLedger) UpdateStatus(ctx context.Context, id string, status attendance.Status, note *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, rec := range m.records {
		if rec.ID == id {
			rec.Status = status
			rec.Note = note
			m.records[k] = rec
			return nil
		}
	}
	return attendance.ErrRecordNotFound
}

// recordsOf returns every record of a person, entries first.
func (m *memLedger) recordsOf(personID string) []attendance.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []attendance.Record
	for k, rec := range m.records {
		if k.personID == personID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func (m *memLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type memDirectory struct {
	people   []person.Person
	failNext bool
}

func (d *memDirectory) add(id, identity, name string, role person.Role, classroomID string) person.Person {
	p := person.Person{ID: id, Identity: identity, Name: name, Role: role, Active: true}
	if classroomID != "" {
		p.ClassroomID = &classroomID
	}
	d.people = append(d.people, p)
	return p
}

func (d *memDirectory) Resolve(ctx context.Context, identity string) (person.Person, error) {
	if d.failNext {
		return person.Person{}, errStoreDown
	}
	for _, p := range d.people {
		if p.Identity == identity {
			return p, nil
		}
	}
	return person.Person{}, person.ErrPersonNotFound
}

func (d *memDirectory) GetByID(ctx context.Context, id string) (person.Person, error) {
	for _, p := range d.people {
		if p.ID == id {
			return p, nil
		}
	}
	return person.Person{}, person.ErrPersonNotFound
}

func (d *memDirectory) GetByEmail(ctx context.Context, email string) (person.Person, error) {
	for _, p := range d.people {
		if p.Email != nil && strings.EqualFold(*p.Email, email) {
			return p, nil
		}
	}
	return person.Person{}, person.ErrPersonNotFound
}

func (d *memDirectory) StudentsOf(ctx context.Context, classroomID string) ([]person.Person, error) {
	var out []person.Person
	for _, p := range d.people {
		if p.Role == person.RoleStudent && p.Classroom() == classroomID && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *memDirectory) Create(ctx context.Context, newPerson person.Person) (person.Person, error) {
	d.people = append(d.people, newPerson)
	return newPerson, nil
}

func (d *memDirectory) List(ctx context.Context, filter person.PersonFilter) ([]person.Person, int64, error) {
	return d.people, int64(len(d.people)), nil
}

func (d *memDirectory) Update(ctx context.Context, p person.Person) (person.Person, error) {
	for i := range d.people {
		if d.people[i].ID == p.ID {
			d.people[i] = p
			return p, nil
		}
	}
	return person.Person{}, person.ErrPersonNotFound
}

func (d *memDirectory) SetActive(ctx context.Context, id string, active bool) error {
	for i := range d.people {
		if d.people[i].ID == id {
			d.people[i].Active = active
			return nil
		}
	}
	return person.ErrPersonNotFound
}

type memClassrooms struct {
	mu      sync.Mutex
	rooms   []classroom.Classroom
	touched map[string]time.Time
}

func (c *memClassrooms) GetByID(ctx context.Context, id string) (classroom.Classroom, error) {
	for _, room := range c.rooms {
		if room.ID == id {
			return room, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrClassroomNotFound
}

func (c *memClassrooms) GetByDeviceID(ctx context.Context, deviceID string) (classroom.Classroom, error) {
	for _, room := range c.rooms {
		if room.DeviceID == deviceID {
			return room, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrDeviceNotRegistered
}

func (c *memClassrooms) List(ctx context.Context) ([]classroom.Classroom, error) {
	return c.rooms, nil
}

func (c *memClassrooms) Create(ctx context.Context, newClassroom classroom.Classroom) (classroom.Classroom, error) {
	c.rooms = append(c.rooms, newClassroom)
	return newClassroom, nil
}

func (c *memClassrooms) TouchDevice(ctx context.Context, deviceID string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.touched == nil {
		c.touched = make(map[string]time.Time)
	}
	c.touched[deviceID] = at
	return nil
}

func (c *memClassrooms) MarkDisconnected(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []attendance.ScanEvent
}

func (p *recordingPublisher) PublishScan(ctx context.Context, event attendance.ScanEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) last() attendance.ScanEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}
