package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the YAML configuration structure for dnsoracled, following
// cmd/dnsscience-grpc/config.go's shape exactly: a flat struct unmarshaled
// straight from the file, with flags layered on top in main.go.
type ConfigFile struct {
	Listen        string   `yaml:"listen"`
	MetricsListen string   `yaml:"metrics_listen"`
	APIKeys       []string `yaml:"api_keys"`
	TLSCert       string   `yaml:"tls_cert"`
	TLSKey        string   `yaml:"tls_key"`

	// AdminIdentities are allowed to call set_algorithm/set_digest/
	// set_nsec3_digest (spec.md §6.1); everyone else is denied, matching
	// AdminACL's default-deny policy at construction in main.go.
	AdminIdentities []string `yaml:"admin_identities"`

	// AnchorZoneFile is a path to a zone-file fragment ("$ORIGIN . \n
	// DS records...") that becomes the trust anchor bytes (spec.md §4.5).
	AnchorZoneFile string `yaml:"anchor_zone_file"`

	// BootstrapAlgorithms/BootstrapDigests/BootstrapNSEC3Digests
	// pre-register internal/dnssec's built-ins at startup, keyed by the
	// DNSSEC registry ID they implement (e.g. 8 for RSASHA256, 13 for
	// ECDSAP256SHA256) mapped to the built-in's name.
	BootstrapAlgorithms    map[uint8]string `yaml:"bootstrap_algorithms"`
	BootstrapDigests       map[uint8]string `yaml:"bootstrap_digests"`
	BootstrapNSEC3Digests  map[uint8]string `yaml:"bootstrap_nsec3_digests"`

	// SubmissionsPerSecond/SubmissionBurst tune SubmissionLimiter; zero
	// values leave internal/oracle.DefaultSubmissionLimiterConfig in place.
	SubmissionsPerSecond float64 `yaml:"submissions_per_second"`
	SubmissionBurst      int     `yaml:"submission_burst"`
}

func LoadConfig(path string) (*ConfigFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c ConfigFile
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
