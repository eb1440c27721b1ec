package bootstrap

import (
	"github.com/kbukum/yttext/config"
)

// Config is the constraint for application configuration types. Any struct
// embedding config.ServiceConfig satisfies it through promoted methods, as
// long as it defines its own ApplyDefaults and Validate covering its
// sections.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Jobs jobs.Config `yaml:"jobs" mapstructure:"jobs"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
