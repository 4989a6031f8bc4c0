package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ConfigError wraps any failure to load, parse, or look up configuration.
type ConfigError struct {
	Path string
	Op   string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Record is a single named process configuration. Fields are recognized per
// the wire format; manager_* slices are positionally aligned, one entry per
// manager the process owns.
type Record struct {
	ProcessName             string   `json:"processname"`
	DataflowType            string   `json:"dataflow_type"`
	ProcessingType          string   `json:"processing_type"`
	DataSocketType          string   `json:"datasocket_type"`
	DataLPSocket            string   `json:"data_lp_socket"`
	DataHPSocket            string   `json:"data_hp_socket"`
	CommandSocket           string   `json:"command_socket"`
	MonitoringSocket        string   `json:"monitoring_socket"`
	ManagerResultSocket     []string `json:"manager_result_socket"`
	ManagerResultSocketType []string `json:"manager_result_socket_type"`
	ManagerResultDataflow   []string `json:"manager_result_dataflow_type"`
	ManagerNumWorkers       []int    `json:"manager_num_workers"`
	Comment                 string   `json:"comment"`
}

// requiredFields lists the keys a Record must carry non-empty values for
// before a consumer may rely on them. Validation happens lazily, at the
// point a consumer calls Require, not at Load time.
var requiredFields = []string{
	"processname",
	"dataflow_type",
	"processing_type",
	"datasocket_type",
	"data_lp_socket",
	"data_hp_socket",
	"command_socket",
	"monitoring_socket",
	"manager_result_socket",
	"manager_result_socket_type",
	"manager_num_workers",
}

// Require validates that every field this implementation depends on is
// present and non-empty, returning a ConfigError naming the first offender.
func (r *Record) Require() error {
	for _, field := range requiredFields {
		if r.fieldEmpty(field) {
			return &ConfigError{Op: "validate", Err: fmt.Errorf("field %q is missing or empty in configuration %q", field, r.ProcessName)}
		}
	}
	return nil
}

func (r *Record) fieldEmpty(field string) bool {
	switch field {
	case "processname":
		return r.ProcessName == ""
	case "dataflow_type":
		return r.DataflowType == ""
	case "processing_type":
		return r.ProcessingType == ""
	case "datasocket_type":
		return r.DataSocketType == ""
	case "data_lp_socket":
		return r.DataLPSocket == ""
	case "data_hp_socket":
		return r.DataHPSocket == ""
	case "command_socket":
		return r.CommandSocket == ""
	case "monitoring_socket":
		return r.MonitoringSocket == ""
	case "manager_result_socket":
		return len(r.ManagerResultSocket) == 0
	case "manager_result_socket_type":
		return len(r.ManagerResultSocketType) == 0
	case "manager_num_workers":
		return len(r.ManagerNumWorkers) == 0
	}
	return false
}

// NumManagers returns how many managers this process configures, derived
// from the manager_num_workers slice length.
func (r *Record) NumManagers() int {
	return len(r.ManagerNumWorkers)
}

// Store holds every configuration record loaded from a file, indexed by
// processname.
type Store struct {
	records map[string]*Record
}

// Load reads path as a JSON array of configuration records and indexes them
// by processname.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Op: "read", Err: err}
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &ConfigError{Path: path, Op: "parse", Err: err}
	}

	s := &Store{records: make(map[string]*Record, len(records))}
	for _, r := range records {
		s.records[r.ProcessName] = r
	}
	return s, nil
}

// Get returns the record named name, or a ConfigError if no such record was
// loaded.
func (s *Store) Get(name string) (*Record, error) {
	r, ok := s.records[name]
	if !ok {
		return nil, &ConfigError{Op: "lookup", Err: fmt.Errorf("no configuration named %q", name)}
	}
	return r, nil
}

// ToBindAddress rewrites a connect-style tcp address ("tcp://host:port")
// into its bind-side counterpart ("tcp://*:port"). Addresses that are not
// three-part tcp addresses are returned unchanged.
func ToBindAddress(address string) string {
	parts := strings.Split(address, ":")
	if len(parts) == 3 && parts[0] == "tcp" {
		return fmt.Sprintf("%s://*:%s", parts[0], parts[2])
	}
	return address
}
