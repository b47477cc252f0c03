package main

import (
	"strings"
	"sync"

	"dcatwiz/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// baseURL resolves the daemon API address: the --api flag wins, then the
// configured bind address.
func (c *commandContext) baseURL() string {
	if c.apiFlag != nil {
		if flag := strings.TrimSpace(*c.apiFlag); flag != "" {
			return normalizeBaseURL(flag)
		}
	}
	bind := "127.0.0.1:7743"
	if cfg, err := c.ensureConfig(); err == nil && strings.TrimSpace(cfg.Paths.APIBind) != "" {
		bind = strings.TrimSpace(cfg.Paths.APIBind)
	}
	return normalizeBaseURL(bind)
}

func (c *commandContext) token() string {
	if c.tokenFlag != nil {
		if flag := strings.TrimSpace(*c.tokenFlag); flag != "" {
			return flag
		}
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return strings.TrimSpace(cfg.Paths.APIToken)
	}
	return ""
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.baseURL(), c.token())
}

func normalizeBaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	return "http://" + strings.TrimRight(addr, "/")
}
