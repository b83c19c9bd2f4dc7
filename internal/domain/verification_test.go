package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	reason := "Blurry scan"
	approved := &Verification{Status: VerificationApproved}
	rejected := &Verification{Status: VerificationRejected, RejectionReason: &reason}

	assert.Equal(t, VerificationPending, DeriveStatus(false, nil))
	assert.Equal(t, VerificationApproved, DeriveStatus(true, nil))
	assert.Equal(t, VerificationApproved, DeriveStatus(true, rejected))
	assert.Equal(t, VerificationRejected, DeriveStatus(false, rejected))
	// a stale approval on a hidden document is not trusted
	assert.Equal(t, VerificationPending, DeriveStatus(false, approved))
}

func TestRoleCanVerify(t *testing.T) {
	assert.True(t, RoleFaculty.CanVerify())
	assert.True(t, RoleAdmin.CanVerify())
	assert.False(t, RoleStudent.CanVerify())
	assert.False(t, Role("").CanVerify())
}
