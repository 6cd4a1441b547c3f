package policy

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
)

func principal(userID snowflake.ID, role string) tenantctx.Principal {
	return tenantctx.Principal{UserID: userID, CompanyID: 1, Role: role}
}

func TestCanView(t *testing.T) {
	me := snowflake.ID(10)
	report := snowflake.ID(20)
	stranger := snowflake.ID(30)

	tests := []struct {
		name           string
		actor          tenantctx.Principal
		ownerID        snowflake.ID
		ownerManagerID *snowflake.ID
		want           bool
	}{
		{"employee sees own", principal(me, "EMPLOYEE"), me, nil, true},
		{"employee denied others", principal(me, "EMPLOYEE"), stranger, nil, false},
		{"manager sees own", principal(me, "MANAGER"), me, nil, true},
		{"manager sees direct report", principal(me, "MANAGER"), report, &me, true},
		{"manager denied non-report", principal(me, "MANAGER"), stranger, &stranger, false},
		{"manager denied unmanaged owner", principal(me, "MANAGER"), stranger, nil, false},
		{"admin sees anyone in company", principal(me, "ADMIN"), stranger, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.actor, tt.ownerID, tt.ownerManagerID))
		})
	}
}

func TestCanModify(t *testing.T) {
	me := snowflake.ID(10)
	other := snowflake.ID(20)

	assert.True(t, CanModify(principal(me, "EMPLOYEE"), me))
	assert.False(t, CanModify(principal(me, "EMPLOYEE"), other))
	assert.False(t, CanModify(principal(me, "MANAGER"), other))
	assert.True(t, CanModify(principal(me, "ADMIN"), other))
}
