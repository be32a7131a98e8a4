package mail

import "time"

type (
	Config struct {
		SMTP  *SMTPConfig  `mapstructure:"smtp"`
		Retry *RetryConfig `mapstructure:"retry"`
	}

	SMTPConfig struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
		From string `mapstructure:"from"`
		// FailFirst makes the transport fail the first attempts of every message.
		FailFirst int `mapstructure:"fail_first"`
	}

	RetryConfig struct {
		Attempts        uint64        `mapstructure:"attempts"`
		InitialInterval time.Duration `mapstructure:"initial_interval"`
		MaxInterval     time.Duration `mapstructure:"max_interval"`
	}
)

func (c *SMTPConfig) ApplyDefault() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 25
	}
	if c.From == "" {
		c.From = "noreply@localhost"
	}
}

func (c *RetryConfig) ApplyDefault() {
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 2 * time.Second
	}
}
