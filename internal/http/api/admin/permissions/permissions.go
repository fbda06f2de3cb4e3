package permissions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Definition describes one grantable admin permission. The key doubles as the
// route identity, so granting a permission grants exactly one endpoint.
type Definition struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// Definitions enumerates every permission-gated admin endpoint.
var Definitions = []Definition{
	{Key: "GET /api/admin/dashboard", Name: "View dashboard", Group: "dashboard"},

	{Key: "GET /api/admin/users", Name: "List users", Group: "users"},
	{Key: "GET /api/admin/users/:id", Name: "View user", Group: "users"},
	{Key: "PUT /api/admin/users/:id/points", Name: "Adjust user points", Group: "users"},
	{Key: "PUT /api/admin/users/:id/block", Name: "Block or unblock user", Group: "users"},

	{Key: "GET /api/admin/orders", Name: "List orders", Group: "orders"},
	{Key: "GET /api/admin/orders/:id", Name: "View order", Group: "orders"},
	{Key: "PUT /api/admin/orders/:id/status", Name: "Update order status", Group: "orders"},
	{Key: "PUT /api/admin/orders/:id/payment-status", Name: "Update payment status", Group: "orders"},

	{Key: "GET /api/admin/games", Name: "List games", Group: "catalog"},
	{Key: "POST /api/admin/games", Name: "Create game", Group: "catalog"},
	{Key: "PUT /api/admin/games/:id", Name: "Update game", Group: "catalog"},
	{Key: "DELETE /api/admin/games/:id", Name: "Delete game", Group: "catalog"},

	{Key: "GET /api/admin/settings", Name: "View settings", Group: "settings"},
	{Key: "PUT /api/admin/settings", Name: "Update settings", Group: "settings"},

	{Key: "GET /api/admin/admins", Name: "List admins", Group: "admins"},
	{Key: "POST /api/admin/admins", Name: "Create admin", Group: "admins"},
	{Key: "GET /api/admin/admins/:id", Name: "View admin", Group: "admins"},
	{Key: "PUT /api/admin/admins/:id", Name: "Update admin", Group: "admins"},
	{Key: "DELETE /api/admin/admins/:id", Name: "Delete admin", Group: "admins"},
	{Key: "PUT /api/admin/admins/:id/password", Name: "Change admin password", Group: "admins"},
	{Key: "POST /api/admin/admins/:id/disable", Name: "Disable admin", Group: "admins"},
	{Key: "POST /api/admin/admins/:id/enable", Name: "Enable admin", Group: "admins"},

	{Key: "GET /api/admin/mfa/status", Name: "View MFA status", Group: "mfa"},
	{Key: "POST /api/admin/mfa/totp/prepare", Name: "Prepare TOTP", Group: "mfa"},
	{Key: "POST /api/admin/mfa/totp/confirm", Name: "Confirm TOTP", Group: "mfa"},
	{Key: "POST /api/admin/mfa/totp/disable", Name: "Disable TOTP", Group: "mfa"},

	{Key: "GET /api/admin/permissions", Name: "List permission definitions", Group: "admins"},
}

// Key builds the permission key for a route.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// DefinitionMap returns definitions keyed by permission key.
func DefinitionMap() map[string]Definition {
	m := make(map[string]Definition, len(Definitions))
	for _, def := range Definitions {
		m[def.Key] = def
	}
	return m
}

// ParsePermissions decodes the stored permission list; malformed data reads as
// no permissions rather than an error.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil
	}
	return NormalizePermissions(keys)
}

// NormalizePermissions trims, deduplicates and sorts permission keys.
func NormalizePermissions(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions rejects keys that name no defined permission.
func ValidatePermissions(keys []string) error {
	m := DefinitionMap()
	for _, key := range keys {
		if _, ok := m[key]; !ok {
			return fmt.Errorf("unknown permission %q", key)
		}
	}
	return nil
}

// MarshalPermissions encodes permission keys for storage.
func MarshalPermissions(keys []string) ([]byte, error) {
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(keys)
}

// HasPermission reports whether the granted set includes the key.
func HasPermission(granted []string, key string) bool {
	for _, g := range granted {
		if g == key {
			return true
		}
	}
	return false
}
