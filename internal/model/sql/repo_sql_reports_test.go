package sql

import (
	"strings"
	"testing"
)

func TestTagMembershipCondition(t *testing.T) {
	cond, args := tagMembershipCondition(1)
	if !strings.Contains(cond, "fault_tags = ?") {
		t.Errorf("condition missing equality match: %s", cond)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}

	want := []string{"[1]", "[1,%", "%,1]", "%,1,%"}
	for i, pattern := range want {
		if args[i] != pattern {
			t.Errorf("arg %d: expected %q, got %v", i, pattern, args[i])
		}
	}
}

func TestTagMembershipConditionNoPrefixCollision(t *testing.T) {
	// 编码固定为 [1,2,3]，模式必须区分 1 和 12
	_, args := tagMembershipCondition(1)

	encoded := "[12,34]"
	if args[0] == encoded {
		t.Errorf("equality pattern %v must not match %s", args[0], encoded)
	}
	if strings.HasPrefix(encoded, strings.TrimSuffix(args[1].(string), "%")) {
		t.Errorf("prefix pattern %v must not match %s", args[1], encoded)
	}
	if strings.HasSuffix(encoded, strings.TrimPrefix(args[2].(string), "%")) {
		t.Errorf("suffix pattern %v must not match %s", args[2], encoded)
	}
	if strings.Contains(encoded, strings.Trim(args[3].(string), "%")) {
		t.Errorf("middle pattern %v must not match %s", args[3], encoded)
	}
}

func TestTagListFilterMatchesAnyTag(t *testing.T) {
	cond, args := tagListFilter([]uint{1, 2})

	// 多个标签之间是任一匹配，不是同时包含
	if strings.Count(cond, " OR ") != 7 {
		t.Errorf("expected per-tag groups joined by OR, got: %s", cond)
	}
	if strings.Contains(cond, " AND ") {
		t.Errorf("tag groups must not be AND-ed: %s", cond)
	}
	if len(args) != 8 {
		t.Fatalf("expected 8 args, got %d", len(args))
	}
	if args[0] != "[1]" || args[4] != "[2]" {
		t.Errorf("unexpected arg layout: %v", args)
	}
}

func TestBuildOrderClause(t *testing.T) {
	allowed := map[string]string{
		"createdAt":  "created_at",
		"usageCount": "usage_count",
	}

	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		expected  string
	}{
		{name: "empty falls back to default desc", sortBy: "", sortOrder: "", expected: "created_at DESC"},
		{name: "whitelisted column", sortBy: "usageCount", sortOrder: "asc", expected: "usage_count ASC"},
		{name: "unknown column falls back", sortBy: "password_hash; DROP TABLE users", sortOrder: "asc", expected: "created_at ASC"},
		{name: "invalid direction defaults to desc", sortBy: "createdAt", sortOrder: "sideways", expected: "created_at DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildOrderClause(tt.sortBy, tt.sortOrder, allowed, "created_at")
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
