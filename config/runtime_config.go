package config

// RuntimeConfig is the part of the configuration that may be changed through
// the web API. Serial, transport and pin settings are left alone.
type RuntimeConfig struct {
	Controller ControllerConfig `json:"Controller"`
	Sidetone   SidetoneConfig   `json:"Sidetone"`
	Logging    LoggingConfig    `json:"Logging"`
}

func (c *Config) Runtime() RuntimeConfig {
	return RuntimeConfig{
		Controller: c.Controller,
		Sidetone:   c.Sidetone,
		Logging:    c.Logging,
	}
}

func (c *Config) ApplyRuntime(rc RuntimeConfig) {
	c.Controller = rc.Controller
	c.Sidetone = rc.Sidetone
	c.Logging = rc.Logging
}
