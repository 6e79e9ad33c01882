package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

func TestNextCode(t *testing.T) {
	assert.Equal(t, "AYU-001", NextCode(nil))

	records := []models.AidRecord{
		{Codigo: "AYU-007"},
		{Codigo: "AYU-012"},
		{Codigo: "OTRO"},
		{Codigo: ""},
	}
	assert.Equal(t, "AYU-013", NextCode(records))
	assert.Equal(t, "AYU-1000", NextCode([]models.AidRecord{{Codigo: "AYU-999"}}))
	assert.Equal(t, "AYU-010", NextCode([]models.AidRecord{{Codigo: "AYU-001"}, {Codigo: "AYU-002"}, {Codigo: "AYU-009"}}))
}

func TestRecentRegistrationsWindow(t *testing.T) {
	now := testNow
	records := []models.AidRecord{
		sampleRecord(1, "AYU-001", "V1", "2024-05-15"),           // today
		sampleRecord(2, "AYU-002", "V1", "2024-02-15"),           // exactly three months ago
		sampleRecord(3, "AYU-003", "V1", "2024-02-14"),           // one day too old
		sampleRecord(4, "AYU-004", "V1", "2024-05-16"),           // future
		sampleRecord(5, "AYU-005", "V2", "2024-05-10"),           // other applicant
		sampleRecord(6, "AYU-006", "V1", "2024-04-01T09:00:00Z"), // timestamp
	}
	assert.Equal(t, 3, RecentRegistrations(records, "V1", now))
	assert.True(t, RequiresPIN(records, "V1", now))
	assert.False(t, RequiresPIN(records, "V2", now))
	assert.False(t, RequiresPIN(records, "", now))
}

func TestRequiresPINNeedsTwoRecent(t *testing.T) {
	records := []models.AidRecord{sampleRecord(1, "AYU-001", "V1", "2024-05-01")}
	assert.False(t, RequiresPIN(records, "V1", testNow))
	records = append(records, sampleRecord(2, "AYU-002", "V1", "2024-03-01"))
	assert.True(t, RequiresPIN(records, "V1", testNow))
	assert.False(t, RequiresPIN(records, "V1", testNow.AddDate(0, 6, 0)))
}

func TestValidatorPhoneRule(t *testing.T) {
	v := NewValidator()
	r := sampleRecord(1, "AYU-001", "V1", "2024-05-01")

	r.Telefono = ""
	require.NoError(t, v.Struct(r))
	r.Telefono = "0414123456"
	require.NoError(t, v.Struct(r))
	r.Telefono = "04141234"
	assert.Error(t, v.Struct(r))
	r.Telefono = "04141234ab"
	assert.Error(t, v.Struct(r))
}

func TestValidatorSexCode(t *testing.T) {
	v := NewValidator()
	r := sampleRecord(1, "AYU-001", "V1", "2024-05-01")

	for _, sex := range []string{"M", "F"} {
		r.Sexo = sex
		require.NoError(t, v.Struct(r))
	}
	for _, sex := range []string{"X", "Femenino", "f"} {
		r.Sexo = sex
		assert.Error(t, v.Struct(r), sex)
	}
}

func TestValidatorRequiredFields(t *testing.T) {
	v := NewValidator()
	err := v.Struct(models.AidRecord{})
	require.Error(t, err)
	msg := validationMessage(err)
	for _, field := range []string{"cedula", "nacionalidad", "nombre", "sexo", "municipio", "parroquia", "institucion", "responsable", "tipo_ayuda", "estatus"} {
		assert.Contains(t, msg, field)
	}
}

func TestStatusTransitions(t *testing.T) {
	for _, from := range models.Statuses() {
		for _, to := range models.Statuses() {
			want := !from.Terminal() && !to.Terminal()
			assert.Equal(t, want, from.CanEditTo(to), "%s -> %s", from, to)
		}
		assert.Equal(t, !from.Terminal(), from.CanFinalize())
	}
	legacy := models.Status("PENDIENTE")
	assert.False(t, legacy.Valid())
	assert.True(t, legacy.CanEditTo(models.StatusApproved))
	assert.False(t, models.StatusApproved.CanEditTo(legacy))
}

func TestPINVerifier(t *testing.T) {
	v := newTestVerifier("2468")
	assert.True(t, v.Configured())
	assert.True(t, v.Verify("2468"))
	assert.False(t, v.Verify("1357"))
	assert.False(t, v.Verify(""))

	unset, err := NewPINVerifier("", "")
	require.NoError(t, err)
	assert.False(t, unset.Verify("2468"))

	_, err = NewPINVerifier("", "not-a-hash")
	assert.Error(t, err)
}

func TestMutationRevertsOnCommitFailure(t *testing.T) {
	var state []string
	m := Mutation{
		Apply:  func() { state = append(state, "temp") },
		Commit: func(context.Context) error { return errRemoteDown },
		Revert: func() { state = state[:0] },
	}
	require.Error(t, m.Run(context.Background()))
	assert.Empty(t, state)

	m.Commit = func(context.Context) error { return nil }
	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"temp"}, state)
}
