package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/lottery"
	"golang.org/x/xerrors"
)

// writeMetrics writes the metrics of the command in the text format, so that
// the file can be collected by a node exporter.
func writeMetrics(path string) error {
	registry := prometheus.NewRegistry()

	for _, c := range lottery.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register: %v", err)
		}
	}

	err := prometheus.WriteToTextfile(path, registry)
	if err != nil {
		return xerrors.Errorf("failed to write metrics: %v", err)
	}

	return nil
}
