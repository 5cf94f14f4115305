// Package registry holds the immutable catalog of portal modules and
// permissions. It is pure in-memory data loaded at process start; the
// database never defines which keys exist.
package registry

// Key prefixes used in plan feature lists and stored override maps.
const (
	ModulePrefix     = "mod_"
	PermissionPrefix = "perm_"
)

// Module is a named UI section whose visibility is access-controlled.
type Module struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	NameAr        string `json:"name_ar"`
	Category      string `json:"category"`
	Route         string `json:"route"`
	AlwaysVisible bool   `json:"always_visible"`
}

// Permission is a finer-grained capability flag, optionally tied to a module.
type Permission struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	NameAr        string `json:"name_ar"`
	Category      string `json:"category"`
	RelatedModule string `json:"related_module,omitempty"`
}

var (
	moduleIndex     map[string]int
	permissionIndex map[string]int
	alwaysVisible   map[string]struct{}
)

func init() {
	moduleIndex = make(map[string]int, len(modules))
	alwaysVisible = make(map[string]struct{})
	for i, m := range modules {
		moduleIndex[m.Key] = i
		if m.AlwaysVisible {
			alwaysVisible[m.Key] = struct{}{}
		}
	}
	permissionIndex = make(map[string]int, len(permissions))
	for i, p := range permissions {
		permissionIndex[p.Key] = i
	}
}

// Modules returns every registry module in stable order.
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

// Permissions returns every registry permission in stable order.
func Permissions() []Permission {
	out := make([]Permission, len(permissions))
	copy(out, permissions)
	return out
}

// AlwaysVisibleModuleKeys returns the keys of modules exempt from all gating.
func AlwaysVisibleModuleKeys() map[string]struct{} {
	out := make(map[string]struct{}, len(alwaysVisible))
	for k := range alwaysVisible {
		out[k] = struct{}{}
	}
	return out
}

// ModuleByKey looks up a module by its unprefixed key.
func ModuleByKey(key string) (Module, bool) {
	i, ok := moduleIndex[key]
	if !ok {
		return Module{}, false
	}
	return modules[i], true
}

// PermissionByKey looks up a permission by its unprefixed key.
func PermissionByKey(key string) (Permission, bool) {
	i, ok := permissionIndex[key]
	if !ok {
		return Permission{}, false
	}
	return permissions[i], true
}

// KnownKey reports whether a prefixed key (mod_x / perm_y) names a registry
// entry. Keys with any other prefix are unknown by definition.
func KnownKey(prefixed string) bool {
	if key, ok := TrimModuleKey(prefixed); ok {
		_, found := moduleIndex[key]
		return found
	}
	if key, ok := TrimPermissionKey(prefixed); ok {
		_, found := permissionIndex[key]
		return found
	}
	return false
}

// TrimModuleKey strips the mod_ prefix, reporting whether it was present.
func TrimModuleKey(prefixed string) (string, bool) {
	if len(prefixed) > len(ModulePrefix) && prefixed[:len(ModulePrefix)] == ModulePrefix {
		return prefixed[len(ModulePrefix):], true
	}
	return "", false
}

// TrimPermissionKey strips the perm_ prefix, reporting whether it was present.
func TrimPermissionKey(prefixed string) (string, bool) {
	if len(prefixed) > len(PermissionPrefix) && prefixed[:len(PermissionPrefix)] == PermissionPrefix {
		return prefixed[len(PermissionPrefix):], true
	}
	return "", false
}
