package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FinderConfig 查找器配置
type FinderConfig struct {
	// Threshold 未在模板上单独指定时使用的匹配阈值
	Threshold float64 `json:"threshold"`
	// TimeoutMs 等待超时（毫秒）
	TimeoutMs int `json:"timeout_ms"`
	// PollIntervalMs 两次轮询之间的休眠（毫秒）
	PollIntervalMs int `json:"poll_interval_ms"`
	// MinCaptureIntervalMs 两次截图之间的最小间隔（毫秒）
	MinCaptureIntervalMs int `json:"min_capture_interval_ms"`
	// Overlap 非极大值抑制的重叠比例
	Overlap float64 `json:"overlap"`
	// MaxMatches FindAll 最多返回的数量，0 表示不限制
	MaxMatches int `json:"max_matches"`
	// Mode 匹配公式: ccoeff / ccorr / sqdiff
	Mode string `json:"mode"`
	// ScalePolicy 多尺度策略: best / first
	ScalePolicy string `json:"scale_policy"`
	// Workers 并发计算的尺度数
	Workers int `json:"workers"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file,omitempty"`
}

// DefaultFinderConfig 默认配置
func DefaultFinderConfig() *FinderConfig {
	return &FinderConfig{
		Threshold:            0.7,
		TimeoutMs:            3000,
		PollIntervalMs:       200,
		MinCaptureIntervalMs: 50,
		Overlap:              0.5,
		MaxMatches:           0,
		Mode:                 "ccoeff",
		ScalePolicy:          "best",
		Workers:              1,
		LogLevel:             "INFO",
	}
}

// Timeout 超时时长
func (c *FinderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// PollInterval 轮询间隔
func (c *FinderConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// MinCaptureInterval 最小截图间隔
func (c *FinderConfig) MinCaptureInterval() time.Duration {
	return time.Duration(c.MinCaptureIntervalMs) * time.Millisecond
}

// Validate 校验数值范围
func (c *FinderConfig) Validate() error {
	var errs []error
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold 必须在 [0,1] 范围内: %v", c.Threshold))
	}
	if c.TimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("timeout_ms 不能为负数: %d", c.TimeoutMs))
	}
	if c.PollIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("poll_interval_ms 不能为负数: %d", c.PollIntervalMs))
	}
	if c.MinCaptureIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("min_capture_interval_ms 不能为负数: %d", c.MinCaptureIntervalMs))
	}
	if c.Overlap < 0 || c.Overlap > 1 {
		errs = append(errs, fmt.Errorf("overlap 必须在 [0,1] 范围内: %v", c.Overlap))
	}
	if c.MaxMatches < 0 {
		errs = append(errs, fmt.Errorf("max_matches 不能为负数: %d", c.MaxMatches))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers 不能为负数: %d", c.Workers))
	}
	return errors.Join(errs...)
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return NewManagerWithDir(filepath.Join(homeDir, ".zoey-finder"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithFile 使用指定配置文件创建配置管理器
func NewManagerWithFile(configFile string) *Manager {
	return &Manager{
		configDir:  filepath.Dir(configFile),
		configFile: configFile,
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认配置
// 文件中缺省的字段保持默认值。
func (m *Manager) Load() (*FinderConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultFinderConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultFinderConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultFinderConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultFinderConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := config.Validate(); err != nil {
		return DefaultFinderConfig(), fmt.Errorf("配置无效: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *FinderConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*FinderConfig, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(config *FinderConfig) error {
	return defaultManager.Save(config)
}

// Clear 使用默认管理器清除配置
func Clear() error {
	return defaultManager.Clear()
}
