package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment selects how the browser engine is launched.
type Environment string

const (
	// EnvServerless is managed hosting: a bundled Chromium binary with the
	// sandbox disabled and a single process.
	EnvServerless Environment = "serverless"
	// EnvLocal is a developer machine or VM with Chrome, Chromium or Edge
	// installed.
	EnvLocal Environment = "local"
)

// ParseEnvironment maps a config or flag value onto an Environment.
// "managed" and "production" are accepted for serverless, "interactive" and
// "development" for local. The empty string means local.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serverless", "managed", "production":
		return EnvServerless, nil
	case "", "local", "interactive", "development":
		return EnvLocal, nil
	}
	return "", fmt.Errorf("environment %q is not supported (want serverless or local)", s)
}

// UnmarshalYAML normalises aliases while decoding.
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	env, err := ParseEnvironment(raw)
	if err != nil {
		return err
	}
	*e = env
	return nil
}

// Profile returns the launch profile configured for the environment.
func (c Config) Profile() ChromeProfile {
	if c.Environment == EnvServerless {
		return c.Chrome.Serverless
	}
	return c.Chrome.Local
}
