package config

// ServerConfig configures the HTTP server of the serve command.
type ServerConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// ExportConfig lists the files written after a run. Empty paths are skipped.
type ExportConfig struct {
	CSV   string `json:"csv"`
	JSON  string `json:"json"`
	Chart string `json:"chart"`
}
