package instance

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// ErrNotProvisioned is returned when the instance config file does not
// exist yet.
const ErrNotProvisioned = errors.NotProvisioned

// Port is a TCP port that may be written as a bare or a quoted integer.
type Port int

// UnmarshalYAML accepts 22 as well as "22".
func (p *Port) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: port must be a scalar", node.Line)
	}

	v := strings.TrimSpace(node.Value)
	if v == "" || node.Tag == "!!null" {
		*p = 0
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("line %d: invalid port %q", node.Line, node.Value)
	}
	*p = Port(n)
	return nil
}

// Record is one entry of the instance config file.
type Record struct {
	Instance            string `yaml:"instance"`
	Address             string `yaml:"address"`
	User                string `yaml:"user"`
	Port                Port   `yaml:"port"`
	IdentityFile        string `yaml:"identity_file"`
	OSType              string `yaml:"os_type"`
	RDPPort             Port   `yaml:"rdp_port"`
	Password            string `yaml:"password"`
	WinRMTransport      string `yaml:"winrm_transport"`
	WinRMCertValidation string `yaml:"winrm_cert_validation"`

	// fields holds every key of the entry as written, including keys this
	// package does not interpret.
	fields map[string]any
}

// UnmarshalYAML decodes the typed fields and keeps the raw mapping.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	type plain Record
	if err := node.Decode((*plain)(r)); err != nil {
		return err
	}
	return node.Decode(&r.fields)
}

// Fields returns a copy of the record as written in the file.
func (r Record) Fields() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// has reports whether key was present in the file.
func (r Record) has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// LoadRecords loads all instance records from a YAML file.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithType(fmt.Errorf("instance config %s does not exist: %w", path, err), ErrNotProvisioned)
		}
		return nil, fmt.Errorf("failed to read instance config %s: %w", path, err)
	}

	return LoadRecordsFromYAML(data)
}

// LoadRecordsFromYAML loads instance records from YAML bytes. An empty
// document holds no records.
func LoadRecordsFromYAML(data []byte) ([]Record, error) {
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, errors.WithType(fmt.Errorf("failed to parse instance config: %w", err), errors.NotValid)
	}

	for i, r := range records {
		if r.Instance == "" {
			return nil, errors.WithType(fmt.Errorf("instance config entry %d: instance is required", i), errors.NotValid)
		}
	}

	return records, nil
}

// Lookup returns the record of the named instance.
func Lookup(path, name string) (Record, error) {
	records, err := LoadRecords(path)
	if err != nil {
		return Record{}, err
	}

	for _, r := range records {
		if r.Instance == name {
			return r, nil
		}
	}
	return Record{}, errors.WithType(fmt.Errorf("instance %q not found in %s", name, path), errors.NotFound)
}
