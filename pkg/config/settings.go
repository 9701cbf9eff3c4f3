package config

import (
	"gitlab.com/tozd/go/errors"
)

// SettingsSection is the key clients nest the server settings under in
// workspace/didChangeConfiguration.
const SettingsSection = "toolxml"

// WithSettings returns a copy of c updated from client settings such as
//
//	{"toolxml": {"completion": {"mode": "invoke", "autoCloseTags": false}}}
//
// The section key is optional. Unknown keys are ignored.
func (c *Config) WithSettings(settings any) (*Config, error) {
	out := c.Clone()

	root, ok := settings.(map[string]any)
	if !ok {
		if settings == nil {
			return out, nil
		}
		return nil, errors.Errorf("settings must be an object, got %T", settings)
	}
	if section, ok := root[SettingsSection].(map[string]any); ok {
		root = section
	}

	if completion, ok := root["completion"].(map[string]any); ok {
		if v, ok := completion["mode"]; ok {
			mode, ok := v.(string)
			if !ok {
				return nil, errors.Errorf("completion.mode must be a string, got %T", v)
			}
			out.Completion.Mode = CompletionMode(mode)
		}
		if v, ok := completion["autoCloseTags"]; ok {
			enabled, ok := v.(bool)
			if !ok {
				return nil, errors.Errorf("completion.autoCloseTags must be a boolean, got %T", v)
			}
			out.Completion.AutoCloseTags = enabled
		}
	}
	if v, ok := root["debug"].(bool); ok {
		out.Debug = v
	}

	if err := out.Validate(); err != nil {
		return nil, errors.Errorf("applying settings: %w", err)
	}
	return out, nil
}
