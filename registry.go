// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"fmt"
	"sort"
	"sync"
)

// ExtensionFactory constructs a named behavior extension bound to a
// client, e.g. a VLAN or interface management helper layered on the CLI
// surface.
type ExtensionFactory func(*Client) any

var (
	extensionsMu sync.RWMutex
	extensions   = make(map[string]ExtensionFactory)
)

// RegisterExtension registers a named extension constructor
//
// Extensions are resolved by name at attach time from this explicit
// registry; there is no dynamic discovery. Registering a name twice
// panics, like database/sql driver registration. Typically called from an
// extension package's init function:
//
//	func init() {
//	    eapi.RegisterExtension("vlans", func(c *eapi.Client) any {
//	        return &VlanAPI{client: c}
//	    })
//	}
func RegisterExtension(name string, factory ExtensionFactory) {
	extensionsMu.Lock()
	defer extensionsMu.Unlock()
	if factory == nil {
		panic("eapi: RegisterExtension factory is nil")
	}
	if _, dup := extensions[name]; dup {
		panic("eapi: RegisterExtension called twice for extension " + name)
	}
	extensions[name] = factory
}

// Extensions returns the sorted names of all registered extensions
func Extensions() []string {
	extensionsMu.RLock()
	defer extensionsMu.RUnlock()
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// API constructs the named extension bound to this client
//
// Returns an error wrapping ErrUnknownExtension when no extension is
// registered under the name. The caller asserts the concrete type:
//
//	v, err := client.API("vlans")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vlans := v.(*VlanAPI)
func (c *Client) API(name string) (any, error) {
	extensionsMu.RLock()
	factory, ok := extensions[name]
	extensionsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("extension %q: %w", name, ErrUnknownExtension)
	}
	return factory(c), nil
}
