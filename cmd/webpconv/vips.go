//go:build vips

package main

import (
	"github.com/Skryldev/webpio"
	"github.com/Skryldev/webpio/adapters/vips"
	"github.com/Skryldev/webpio/config"
)

func init() {
	backendSetup = func(br *webpio.Bridge, cfg config.Config) func() {
		if cfg.Backend != config.BackendVips {
			return func() {}
		}
		c := vips.NewCodec(vips.BackendConfig{MaxWorkers: cfg.WorkerCount})
		br.RegisterCodec(string(config.BackendVips), c)
		return c.Shutdown
	}
}
