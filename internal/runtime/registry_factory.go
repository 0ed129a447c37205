// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"github.com/niess/linuxdeploy-plugin-python/internal/config"
)

// BuildRegistry creates and populates the runtime registry.
// Native and virtual runtimes are always registered; the native shell can be
// pinned through the configuration.
func BuildRegistry(cfg *config.Config) *Registry {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	native := NewNativeRuntime()
	native.Shell = cfg.Shell

	registry := NewRegistry()
	registry.Register(RuntimeTypeNative, native)
	registry.Register(RuntimeTypeVirtual, NewVirtualRuntime())
	return registry
}
