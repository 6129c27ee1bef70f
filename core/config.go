package core

// Config is the mahilo runtime configuration shared by the services.
type Config struct {
	FQDN                   string      `yaml:"fqdn"`
	HostedMode             bool        `yaml:"hostedMode"`
	TrustedMode            bool        `yaml:"trustedMode"`
	AllowPrivateIPs        bool        `yaml:"allowPrivateIps"`
	MaxPayloadSize         int         `yaml:"maxPayloadSize"`
	MaxRetries             int         `yaml:"maxRetries"`
	RetryIntervalSeconds   int         `yaml:"retryIntervalSeconds"`
	DeliveryTimeoutSeconds int         `yaml:"deliveryTimeoutSeconds"`
	Judge                  JudgeConfig `yaml:"judge"`
}

// JudgeConfig configures the LLM policy judge. When disabled, llm-type
// policies always pass.
type JudgeConfig struct {
	Enabled        bool   `yaml:"enabled"`
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}
