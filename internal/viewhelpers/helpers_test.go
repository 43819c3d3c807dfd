package viewhelpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/adept-admin/internal/acl"
)

func TestFormatDate(t *testing.T) {
	ts := time.Date(2025, time.March, 4, 15, 6, 7, 0, time.Local)
	assert.Equal(t, "Mar 4, 2025, 03:06 PM", FormatDate(ts))
	assert.Equal(t, "03:06:07 PM", FormatTime(ts))
	assert.Equal(t, "-", FormatDate(nil))
	assert.Equal(t, "-", FormatDate(""))
	assert.Equal(t, "-", FormatDate("yesterday"))
	assert.NotEqual(t, "-", FormatDate("2025-03-04T15:06:07Z"))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Pending", Capitalize("pENDING"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "Vendor Count", CamelToTitle("vendorCount"))
	assert.Equal(t, "Total Business Types", CamelToTitle("totalBusinessTypes"))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "Zoë...", Truncate("Zoë Smith", 3))
	assert.Equal(t, "AL", Initials("ada lovelace king"))
	assert.Equal(t, "?", Initials("  "))
}

func TestFileSize(t *testing.T) {
	assert.Equal(t, "0 Bytes", FileSize(0))
	assert.Equal(t, "512 Bytes", FileSize(512))
	assert.Equal(t, "1.5 KB", FileSize(1536))
	assert.Equal(t, "1 MB", FileSize(1<<20))
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "Super Admin", RoleLabel(acl.RoleSuperAdmin))
	assert.Equal(t, "Admin", RoleLabel(acl.RoleAdmin))
	assert.Equal(t, "Viewer", RoleLabel("viewer"))
}

func TestDict(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, Dict("a", 1, "b", "x", "dangling"))
}
