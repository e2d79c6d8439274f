// Package plugins holds the built-in extension objects: site data lookups,
// text helpers and message translation.
package plugins

import (
	"path/filepath"
	"strings"

	"github.com/goliatone/go-xview/pkg/plugin"
)

// Setting names read by the built-in plugins.
const (
	SettingDataPath      = "data.path"
	SettingI18nPath      = "i18n.path"
	SettingDefaultLocale = "i18n.default-locale"
)

// Module names accepted by Catalog.
const (
	ModuleData = "data"
	ModuleText = "text"
	ModuleI18n = "i18n"
)

// Catalog returns a loader with every built-in module, in the order data,
// text, i18n.
func Catalog() *plugin.StaticLoader {
	return plugin.NewStaticLoader().
		Add(ModuleData, single(func() plugin.Plugin { return &DataPlugin{} })).
		Add(ModuleText, single(func() plugin.Plugin { return &TextPlugin{} })).
		Add(ModuleI18n, single(func() plugin.Plugin { return &I18nPlugin{} }))
}

// Modules lists the built-in module names.
func Modules() []string {
	return Catalog().Candidates()
}

func single(build func() plugin.Plugin) plugin.Module {
	return plugin.ModuleFunc(func(b *plugin.Builder) {
		b.Provide(func() (plugin.Plugin, error) { return build(), nil })
	})
}

// settingPath resolves a path setting against the application root. "~/"
// also denotes the root.
func settingPath(env plugin.Env, name string) string {
	path := strings.TrimSpace(env.Setting(name, ""))
	if path == "" {
		return ""
	}
	path = strings.TrimPrefix(path, "~/")
	if filepath.IsAbs(path) || env.AppRoot == "" {
		return path
	}
	return filepath.Join(env.AppRoot, path)
}
