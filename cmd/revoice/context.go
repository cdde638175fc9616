package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"revoice/internal/client"
	"revoice/internal/config"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
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

func (c *commandContext) baseURL() string {
	if c.apiFlag != nil {
		if v := strings.TrimSpace(*c.apiFlag); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return "http://" + net.JoinHostPort("127.0.0.1", "7488")
	}
	return cfg.ClientBaseURL()
}

func (c *commandContext) client() *client.Client {
	opts := []client.Option{}
	token := ""
	if c.tokenFlag != nil {
		token = strings.TrimSpace(*c.tokenFlag)
	}
	cfg, _ := c.ensureConfig()
	if token == "" && cfg != nil {
		token = cfg.API.Token
	}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	if cfg != nil && cfg.API.Timeout > 0 {
		opts = append(opts, client.WithTimeout(secondsDuration(cfg.API.Timeout)))
	}
	return client.New(c.baseURL(), opts...)
}

// wrapConnError turns transport failures into a hint about starting the
// daemon. API errors pass through untouched.
func wrapConnError(err error, base string) error {
	if err == nil {
		return nil
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	var urlErr *url.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `revoice serve`", base)
	case errors.As(err, &urlErr):
		return fmt.Errorf("connect to daemon at %s: %w", base, err)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
