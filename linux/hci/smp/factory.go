package smp

import (
	"github.com/rigado/ble"
	"github.com/rigado/ble/linux/hci"
)

// factory implements hci.SmpManagerFactory, building one manager per
// Conn from a shared device-wide SmpConfig.
type factory struct {
	log ble.Logger
}

// NewSmpFactory builds an hci.SmpManagerFactory. log, if nil, defaults to
// the package-wide ble.Logger.
func NewSmpFactory(log ble.Logger) hci.SmpManagerFactory {
	if log == nil {
		log = ble.GetLogger()
	}
	return &factory{log: log}
}

func (f *factory) Create(config hci.SmpConfig) hci.SmpManager {
	return newManager(config, f.log.ChildLogger(map[string]interface{}{"component": "smp"}))
}
