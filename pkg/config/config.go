// Package config loads the INI deploy configuration.
package config

import (
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
)

// DefaultFileName is the config file looked up when -c/--config is not given.
const DefaultFileName = "deploy.conf"

// FlatpakConfig customizes the flatpak generator.
type FlatpakConfig struct {
	AppID          string
	Runtime        string
	RuntimeVersion string
	SDK            string
	Branch         string
}

// AppImageConfig customizes the appimage generator.
type AppImageConfig struct {
	Categories string
}

// Config describes the project being deployed. Loaded once per run and
// immutable afterwards.
type Config struct {
	// Name is the base name of every produced artifact.
	Name string
	// Executable is the project's built binary, relative to the working
	// directory.
	Executable string
	// Icon is an optional icon file used by the appimage generator.
	Icon string

	Flatpak  FlatpakConfig
	AppImage AppImageConfig
}

// Load reads and validates the deploy configuration at path.
func Load(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "reading config file %s", path)
	}

	file, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "parsing config file %s", path)
	}

	general := file.Section("general")
	cfg := &Config{
		Name:       general.Key("name").String(),
		Executable: general.Key("executable").String(),
		Icon:       general.Key("icon").String(),
	}
	if cfg.Name == "" {
		return nil, errors.Newf(errors.ErrConfigValid, "%s: [general] name is required", path)
	}
	if cfg.Executable == "" {
		return nil, errors.Newf(errors.ErrConfigValid, "%s: [general] executable is required", path)
	}

	flatpak := file.Section("flatpak")
	cfg.Flatpak = FlatpakConfig{
		AppID:          flatpak.Key("app_id").MustString(defaultAppID(cfg.Name)),
		Runtime:        flatpak.Key("runtime").MustString("org.freedesktop.Platform"),
		RuntimeVersion: flatpak.Key("runtime_version").MustString("23.08"),
		SDK:            flatpak.Key("sdk").MustString("org.freedesktop.Sdk"),
		Branch:         flatpak.Key("branch").MustString("master"),
	}

	appimage := file.Section("appimage")
	cfg.AppImage = AppImageConfig{
		Categories: appimage.Key("categories").MustString("Utility;"),
	}

	return cfg, nil
}

// defaultAppID derives a reverse-DNS flatpak application id from the
// artifact name.
func defaultAppID(name string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return "org.conan." + id
}
