package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/charlesthegreat77/isoforge/iso9660"
)

// formatOptions is the YAML-loadable subset of iso9660.Options a caller
// can supply via --config, the way tombatools loads its WFM dialogue
// data from a YAML file instead of exposing every field as a flag.
type formatOptions struct {
	VolumeIdentifierISO      string `yaml:"volume_identifier"`
	VolumeIdentifierJoliet   string `yaml:"volume_identifier_joliet"`
	SystemIdentifier         string `yaml:"system_identifier"`
	PublisherIdentifierISO   string `yaml:"publisher_identifier"`
	ApplicationIdentifierISO string `yaml:"application_identifier"`
	EnableJoliet             *bool  `yaml:"joliet"`
	EnableRockRidge          *bool  `yaml:"rock_ridge"`
}

// loadFormatOptions reads path and applies any field it sets onto opts,
// leaving iso9660.DefaultOptions()'s values in place for anything the
// file omits.
func loadFormatOptions(path string, opts *iso9660.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fo formatOptions
	if err := yaml.Unmarshal(data, &fo); err != nil {
		return err
	}

	if fo.VolumeIdentifierISO != "" {
		opts.VolumeIdentifierISO = fo.VolumeIdentifierISO
	}
	if fo.VolumeIdentifierJoliet != "" {
		opts.VolumeIdentifierJoliet = fo.VolumeIdentifierJoliet
	}
	if fo.SystemIdentifier != "" {
		opts.SystemIdentifier = fo.SystemIdentifier
	}
	if fo.PublisherIdentifierISO != "" {
		opts.PublisherIdentifierISO = fo.PublisherIdentifierISO
	}
	if fo.ApplicationIdentifierISO != "" {
		opts.ApplicationIdentifierISO = fo.ApplicationIdentifierISO
	}
	if fo.EnableJoliet != nil {
		opts.EnableJoliet = *fo.EnableJoliet
	}
	if fo.EnableRockRidge != nil {
		opts.EnableRockRidge = *fo.EnableRockRidge
	}
	return nil
}
