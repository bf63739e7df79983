package config

import (
	"os"
	"strings"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file into out after expanding environment references.
func Load(path string, out interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file").
			WithDetail("path", path)
	}
	if err := Parse(data, out); err != nil {
		return err.(*errors.Error).WithDetail("path", path)
	}
	return nil
}

// Parse expands ${VAR} and ${VAR:-default} references and decodes YAML.
// Unknown fields are rejected so typos in a run file fail loudly.
func Parse(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(strings.NewReader(expandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	return nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(path string, cfg interface{}) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file").
			WithDetail("path", path)
	}
	return nil
}

func expandEnv(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.IndexByte(content[start:], '}')
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		name, def, hasDef := strings.Cut(content[start+2:end], ":-")
		v, ok := os.LookupEnv(name)
		if (!ok || v == "") && hasDef {
			v = def
		}
		b.WriteString(v)
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
