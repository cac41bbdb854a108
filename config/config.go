package config

import (
	"os"
	"path"

	"github.com/abcfe/abcfe-vault/common/utils"
	"github.com/naoina/toml"
)

type Common struct {
	Level       string // local, alpha, prod
	ServiceName string
}

type LogInfo struct {
	Path       string
	MaxAgeHour int
	RotateHour int
}

type DB struct {
	Path string
}

type Server struct {
	Host     string `toml:"Host"`
	RestPort int    `toml:"RestPort"`
}

// Security unlock throttling, auto-lock and consent behaviour
type Security struct {
	UnlockPerMinute int    `toml:"UnlockPerMinute"` // Allowed unlock attempts per minute
	UnlockBurst     int    `toml:"UnlockBurst"`
	AutoLockMinutes int    `toml:"AutoLockMinutes"` // 0 disables auto-lock
	PromptMode      string `toml:"PromptMode"`      // terminal, accept, deny
}

type Config struct {
	Common   Common
	LogInfo  LogInfo
	DB       DB
	Server   Server
	Security Security
}

func NewConfig(filepath string) (*Config, error) {
	if filepath == "" {
		workDir, _ := os.Getwd()
		rootDir := utils.FindProjectRoot(workDir)
		filepath = path.Join(rootDir, "config", "config.toml")
	}

	if file, err := os.Open(filepath); err != nil {
		return nil, err
	} else {
		defer file.Close()

		c := new(Config)
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return nil, err
		} else {
			c.sanitize()
			return c, nil
		}
	}
}

func (p *Config) sanitize() {
	p.LogInfo.Path = expandHome(p.LogInfo.Path)
	p.DB.Path = expandHome(p.DB.Path)

	if p.Server.Host == "" {
		p.Server.Host = "127.0.0.1"
	}
	if p.Security.UnlockPerMinute <= 0 {
		p.Security.UnlockPerMinute = 5
	}
	if p.Security.UnlockBurst <= 0 {
		p.Security.UnlockBurst = 3
	}
	if p.Security.PromptMode == "" {
		p.Security.PromptMode = "terminal"
	}
}

func expandHome(p string) string {
	if len(p) > 0 && p[0] == byte('~') {
		return path.Join(utils.HomeDir(), p[1:])
	}
	return p
}

func (p *Config) GetConfig() *Config {
	return p
}

func (p *Config) GetLogInfoConfig() *LogInfo {
	return &p.LogInfo
}
