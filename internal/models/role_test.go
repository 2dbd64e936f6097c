// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleViewer.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleSuperAdmin.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("emperor").Valid())
}

func TestRole_Ordering(t *testing.T) {
	assert.Less(t, RoleViewer.Level(), RoleAdmin.Level())
	assert.Less(t, RoleAdmin.Level(), RoleSuperAdmin.Level())
	assert.Zero(t, Role("unknown").Level())
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleViewer))
	assert.False(t, RoleViewer.AtLeast(RoleAdmin))
	assert.False(t, Role("unknown").AtLeast(RoleViewer))
}
