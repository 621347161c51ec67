package auth

import "fmt"

// Role 定義系統角色。
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
	RoleService  Role = "service"
)

// Permission 表示功能權限。
type Permission string

const (
	PermMetricsRead       Permission = "oee.metrics.read"
	PermRealtimeRead      Permission = "oee.realtime.read"
	PermAggregateTrigger  Permission = "oee.aggregate.trigger"
	PermAggregateBackfill Permission = "oee.aggregate.backfill"
	PermRunsRead          Permission = "oee.runs.read"
)

// RolePermissions 簡化權限表。
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermMetricsRead,
		PermRealtimeRead,
		PermAggregateTrigger,
		PermAggregateBackfill,
		PermRunsRead,
	},
	RoleService: {
		PermMetricsRead,
		PermRealtimeRead,
		PermAggregateTrigger,
		PermRunsRead,
	},
	RoleOperator: {
		PermMetricsRead,
		PermRealtimeRead,
		PermRunsRead,
	},
	RoleViewer: {
		PermMetricsRead,
		PermRealtimeRead,
	},
}

// ParseRole 驗證角色字串。
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := RolePermissions[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Allowed 判斷角色是否具備指定權限；空權限代表只需登入。
func Allowed(role Role, perm Permission) bool {
	if perm == "" {
		_, ok := RolePermissions[role]
		return ok
	}
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
