// Package discovery advertises the TorchGo web UI over mDNS.
package discovery

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/enbility/zeroconf/v3"
)

const (
	ServiceType = "_http._tcp"
	Domain      = "local."

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Info describes the advertised service.
type Info struct {
	Instance string // empty means TorchGo-<hostname>
	Port     int
	Backend  string
	Modes    string
}

// Advertiser registers at most one service at a time.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an idle advertiser.
func NewAdvertiser() *Advertiser {
	return &Advertiser{}
}

// Advertise starts (or restarts) advertising info on all interfaces.
func (a *Advertiser) Advertise(info Info) error {
	if info.Port <= 0 {
		return fmt.Errorf("invalid port %d", info.Port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	instance := InstanceName(info.Instance)
	server, err := zeroconf.Register(instance, ServiceType, Domain, info.Port, EncodeTXT(info), nil)
	if err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}
	a.server = server
	debug.Info("Advertising %q (%s) on port %d", instance, ServiceType, info.Port)
	return nil
}

// Stop withdraws the advertisement. Safe to call when idle.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// InstanceName returns name, or TorchGo-<hostname> when name is empty,
// truncated to MaxInstanceNameLen.
func InstanceName(name string) string {
	if name == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "unknown"
		}
		if i := strings.IndexByte(host, '.'); i > 0 {
			host = host[:i]
		}
		name = "TorchGo-" + host
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// EncodeTXT builds key=value TXT strings, sorted by key, skipping empty values.
func EncodeTXT(info Info) []string {
	kv := map[string]string{
		"path":    "/",
		"backend": info.Backend,
		"modes":   info.Modes,
	}
	txt := make([]string, 0, len(kv))
	for k, v := range kv {
		if v == "" {
			continue
		}
		txt = append(txt, k+"="+v)
	}
	sort.Strings(txt)
	return txt
}
