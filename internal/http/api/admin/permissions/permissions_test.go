package permissions

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDefinitionsHaveUniqueKeys(t *testing.T) {
	seen := make(map[string]struct{}, len(Definitions))
	for _, def := range Definitions {
		if def.Key == "" || def.Name == "" || def.Group == "" {
			t.Fatalf("incomplete definition: %+v", def)
		}
		if _, dup := seen[def.Key]; dup {
			t.Fatalf("duplicate permission key %q", def.Key)
		}
		seen[def.Key] = struct{}{}
	}
	if len(DefinitionMap()) != len(Definitions) {
		t.Fatal("definition map lost entries")
	}
}

func TestKeyFormat(t *testing.T) {
	if got := Key("put", " /api/admin/users/:id/points "); got != "PUT /api/admin/users/:id/points" {
		t.Fatalf("Key = %q", got)
	}
}

func TestNormalizePermissions(t *testing.T) {
	got := NormalizePermissions([]string{
		" GET /api/admin/users",
		"GET /api/admin/users",
		"",
		"GET /api/admin/dashboard",
	})
	want := []string{"GET /api/admin/dashboard", "GET /api/admin/users"}
	if len(got) != len(want) {
		t.Fatalf("normalized = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("normalized = %v, want %v", got, want)
		}
	}
}

func TestValidatePermissions(t *testing.T) {
	if err := ValidatePermissions([]string{"GET /api/admin/users"}); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if err := ValidatePermissions([]string{"GET /api/admin/nothing"}); err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestParsePermissionsTolerant(t *testing.T) {
	if got := ParsePermissions(nil); got != nil {
		t.Fatalf("empty raw should read as nil, got %v", got)
	}
	if got := ParsePermissions(datatypes.JSON(`{"not":"a list"}`)); got != nil {
		t.Fatalf("malformed raw should read as nil, got %v", got)
	}
	got := ParsePermissions(datatypes.JSON(`["GET /api/admin/users"]`))
	if len(got) != 1 || got[0] != "GET /api/admin/users" {
		t.Fatalf("parsed = %v", got)
	}
}

func TestHasPermission(t *testing.T) {
	granted := []string{"GET /api/admin/users", "PUT /api/admin/users/:id/points"}
	if !HasPermission(granted, "PUT /api/admin/users/:id/points") {
		t.Fatal("granted key not found")
	}
	if HasPermission(granted, "DELETE /api/admin/games/:id") {
		t.Fatal("ungranted key found")
	}
}
