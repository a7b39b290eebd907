package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/streak"
)

// DefaultChunkOps is the write budget of one attendance commit.
const DefaultChunkOps = 450

// Policy is the club's reward table.
type Policy struct {
	Attendance               streak.Policy `yaml:"attendance"`
	ChunkOps                 int           `yaml:"chunk_ops"`
	FoundationalKeyword      string        `yaml:"foundational_keyword"`
	DefaultPartnerPercentage int           `yaml:"default_partner_percentage"`
}

// DefaultPolicy returns the built-in reward table.
func DefaultPolicy() Policy {
	return Policy{
		Attendance:               streak.DefaultPolicy(),
		ChunkOps:                 DefaultChunkOps,
		FoundationalKeyword:      catalog.DefaultFoundationalKeyword,
		DefaultPartnerPercentage: catalog.DefaultPartnerPercentage,
	}
}

// Validate checks the policy; attendance tiers are sorted as a side effect.
func (p *Policy) Validate() error {
	if err := p.Attendance.Validate(); err != nil {
		return fmt.Errorf("attendance: %w", err)
	}
	if p.ChunkOps < 1 {
		return errors.New("chunk_ops must be at least 1")
	}
	if p.FoundationalKeyword == "" {
		return errors.New("foundational_keyword must be set")
	}
	if p.DefaultPartnerPercentage < 1 || p.DefaultPartnerPercentage > 100 {
		return errors.New("default_partner_percentage must be between 1 and 100")
	}
	return nil
}

// LoadPolicy reads a YAML policy file. An empty path yields the defaults.
// Fields missing from the file keep their default values.
// PRE: none
// POST: Returns a validated Policy
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes YAML over the defaults, rejecting unknown keys.
func ParsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}
