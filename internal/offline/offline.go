// Package offline 描述网页外壳 service worker 使用的离线资源缓存。
package offline

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// StrategyNetworkFirst 在线时取最新响应，离线时回退到缓存
const StrategyNetworkFirst = "network-first"

//go:embed manifest.yaml
var rawManifest []byte

// Manifest 列出外壳首次加载时安装的带版本缓存
type Manifest struct {
	CacheName string   `yaml:"cache_name" json:"cacheName"`
	Version   string   `yaml:"version" json:"version"`
	Strategy  string   `yaml:"strategy" json:"strategy"`
	Assets    []string `yaml:"assets" json:"assets"`
}

// Current 返回外壳应打开的缓存名，如 "name-v5"
func (m Manifest) Current() string {
	return m.CacheName + "-" + m.Version
}

var (
	loadOnce sync.Once
	loaded   Manifest
	loadErr  error
)

// Load 只解析一次内嵌的 manifest
func Load() (Manifest, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(rawManifest)
	})
	return loaded, loadErr
}

// Parse 解码 manifest 文档并补全默认值
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse offline manifest: %w", err)
	}
	m.CacheName = strings.TrimSpace(m.CacheName)
	m.Version = strings.TrimSpace(m.Version)
	if m.CacheName == "" || m.Version == "" {
		return Manifest{}, errors.New("offline manifest needs cache_name and version")
	}
	if m.Strategy == "" {
		m.Strategy = StrategyNetworkFirst
	}
	if m.Assets == nil {
		m.Assets = []string{}
	}
	return m, nil
}

// StaleCaches 返回 existing 中属于本应用但不是当前版本的缓存，
// 其他应用的缓存不受影响。
func (m Manifest) StaleCaches(existing []string) []string {
	prefix := m.CacheName + "-"
	current := m.Current()
	stale := []string{}
	for _, name := range existing {
		if name == current || !strings.HasPrefix(name, prefix) {
			continue
		}
		stale = append(stale, name)
	}
	return stale
}
