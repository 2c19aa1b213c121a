// Package config loads the feed handler's plain, externally-owned inputs:
// which ingress mode to run, which cores to pin the producer/consumer
// threads to, and the queue capacity. The core itself holds no configuration
// and reads no files; these values are constructor inputs handed to it.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// IngressMode selects which adapter feeds the session.
type IngressMode string

const (
	IngressUDP     IngressMode = "udp"
	IngressPCAP    IngressMode = "pcap"
	IngressRawFile IngressMode = "raw_itch_file"
)

// Config is the full set of plain inputs the feed handler's constructor
// accepts. No file path or environment variable is consulted by the core;
// only this struct, loaded once by the adapter layer.
type Config struct {
	Ingress IngressMode `toml:"ingress"`

	UDPAddr  string `toml:"udp_addr"`
	PCAPFile string `toml:"pcap_file"`
	ITCHFile string `toml:"itch_file"`

	PinToCore    bool `toml:"pin_to_core"`
	ProducerCore int  `toml:"producer_core"`
	ConsumerCore int  `toml:"consumer_core"`

	QueueCapacity uint64 `toml:"queue_capacity"`

	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the configuration the source's dpdk::Config defaults to,
// translated to this adapter's fields: live UDP ingest on the NASDAQ
// TotalView-ITCH multicast group, producer/consumer pinned to cores 1 and 2.
func Default() Config {
	return Config{
		Ingress:       IngressUDP,
		UDPAddr:       "233.54.12.111:26477",
		PinToCore:     true,
		ProducerCore:  1,
		ConsumerCore:  2,
		QueueCapacity: 1 << 16,
	}
}

// Load reads a TOML file at path on top of Default, so any field absent from
// the file keeps its Default value (a field the file sets explicitly, even to
// zero, takes the file's value), and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that cfg names a usable ingress target and a sane queue
// capacity.
func Validate(cfg Config) error {
	switch cfg.Ingress {
	case IngressUDP:
		if strings.TrimSpace(cfg.UDPAddr) == "" {
			return fmt.Errorf("config: udp ingress requires udp_addr")
		}
	case IngressPCAP:
		if strings.TrimSpace(cfg.PCAPFile) == "" {
			return fmt.Errorf("config: pcap ingress requires pcap_file")
		}
	case IngressRawFile:
		if strings.TrimSpace(cfg.ITCHFile) == "" {
			return fmt.Errorf("config: raw_itch_file ingress requires itch_file")
		}
	default:
		return fmt.Errorf("config: unknown ingress mode %q", cfg.Ingress)
	}
	if cfg.QueueCapacity < 2 || cfg.QueueCapacity&(cfg.QueueCapacity-1) != 0 {
		return fmt.Errorf("config: queue_capacity must be a power of two >= 2, got %d", cfg.QueueCapacity)
	}
	return nil
}
