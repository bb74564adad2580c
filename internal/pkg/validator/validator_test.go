package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty(" \t "))
	assert.False(t, IsEmpty(" ruiz "))
}

func TestIsValidEmail(t *testing.T) {
	for _, email := range []string{"ruiz@school.edu", "front.desk+1@campus.ac.pa", "a@b.cd"} {
		assert.True(t, IsValidEmail(email), email)
	}
	for _, email := range []string{"ruiz@", "@school.edu", "ruiz@.edu", "ruiz@school", " ", ""} {
		assert.False(t, IsValidEmail(email), email)
	}
}

func TestIsValidIdentity(t *testing.T) {
	for _, s := range []string{"8-1234-5678", "V-123", "PE-12-345", "E-8-117", "123456"} {
		assert.True(t, IsValidIdentity(s), s)
	}
	for _, s := range []string{"", "8--1234", "-8-1234", "8-1234-", "8 1234 5678", "8-1234-5678-1-2"} {
		assert.False(t, IsValidIdentity(s), s)
	}
}

func TestIsValidDate(t *testing.T) {
	d, ok := IsValidDate("2024-03-04")
	require.True(t, ok)
	assert.Equal(t, 4, d.Day())

	for _, s := range []string{"2024-13-01", "2024-02-30", "2024/03/04", "04-03-2024", ""} {
		_, ok := IsValidDate(s)
		assert.False(t, ok, s)
	}
}

func TestIsInSlice(t *testing.T) {
	statuses := []string{"on_time", "late", "absent"}
	assert.True(t, IsInSlice("late", statuses))
	assert.False(t, IsInSlice("justified", statuses))
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "payload", Message: "payload is required"},
		{Field: "device_id", Message: "device_id must not exceed 64 characters"},
	}

	assert.Equal(t, "payload: payload is required; device_id: device_id must not exceed 64 characters", errs.Error())
	assert.Equal(t, map[string]string{
		"payload":   "payload is required",
		"device_id": "device_id must not exceed 64 characters",
	}, errs.ToMap())
}

type justification struct {
	Identity string `json:"identity" validate:"required,identity"`
	Reason   string `json:"reason" validate:"notblank,max=10"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(justification{Identity: "8-1234-5678", Reason: "sick", Role: "student"}))

	err := Struct(justification{Identity: "8--1", Reason: "   ", Role: "janitor"})
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)

	got := errs.ToMap()
	assert.Equal(t, "identity must be a valid national ID", got["identity"])
	assert.Equal(t, "reason is required", got["reason"])
	assert.Equal(t, "role must be one of: student, teacher", got["role"])

	err = Struct(justification{Identity: "V-1", Reason: "a very long reason"})
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "reason must not exceed 10 characters", errs.ToMap()["reason"])
}
