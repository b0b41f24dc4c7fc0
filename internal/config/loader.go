package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Load reads the configuration file resolved from the environment (or
// the given explicit path) into a viper instance. With checkPerms set
// it refuses group/world-readable files, since the document names
// secret file locations.
func Load(path string, checkPerms bool) (*viper.Viper, error) {
	if path == "" {
		path = ResolveConfigPath()
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.AutomaticEnv()

	if checkPerms {
		if err := checkConfigPermissions(path); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, &Error{Kind: KindSyntax, Detail: fmt.Sprintf("config file not found: %s", path)}
		}
		return nil, &Error{Kind: KindSyntax, Detail: fmt.Sprintf("reading %s", path), Err: err}
	}

	return v, nil
}

// Parse decodes a raw configuration document from memory. Used by
// tests and by the reload path, which re-reads the file itself.
func Parse(raw []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, &Error{Kind: KindSyntax, Detail: "parsing configuration", Err: err}
	}
	return Unmarshal(v)
}

func checkConfigPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	mode := info.Mode().Perm()

	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %s (recommended: 0600)", path, mode)
	}
	return nil
}
