package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Settings 持久化的两项偏好设置。这是整个程序唯一落盘的状态。
type Settings struct {
	HideBalances bool  `json:"hide_balances"` // UI是否隐藏余额数字
	ChartSeed    int64 `json:"chart_seed"`    // 模拟图表的随机种子，保证重启后曲线稳定
}

// Prefs 偏好设置存储，读写单个JSON文件。
type Prefs struct {
	mu      sync.Mutex
	path    string
	current Settings
}

// DefaultSettings 返回默认偏好；种子取当前时间，保存后即固定。
func DefaultSettings() Settings {
	return Settings{
		HideBalances: false,
		ChartSeed:    time.Now().UnixNano(),
	}
}

// Load 从磁盘加载偏好；文件不存在时写入默认值。
func Load(path string) (*Prefs, error) {
	p := &Prefs{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		p.current = DefaultSettings()
		if err := p.save(); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("偏好文件不存在，已写入默认值")
		return p, nil
	}

	if err := json.Unmarshal(data, &p.current); err != nil {
		return nil, err
	}
	if p.current.ChartSeed == 0 {
		p.current.ChartSeed = time.Now().UnixNano()
		if err := p.save(); err != nil {
			return nil, err
		}
	}

	log.Info().Str("path", path).Msg("偏好加载成功")
	return p, nil
}

// Get 返回当前偏好的副本。
func (p *Prefs) Get() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// SetHideBalances 更新隐藏余额开关并立即落盘。
func (p *Prefs) SetHideBalances(hide bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current.HideBalances = hide
	return p.save()
}

// SetChartSeed 更新图表种子并立即落盘。
func (p *Prefs) SetChartSeed(seed int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current.ChartSeed = seed
	return p.save()
}

// Reset 恢复默认偏好并落盘。
func (p *Prefs) Reset() (Settings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = DefaultSettings()
	if err := p.save(); err != nil {
		return Settings{}, err
	}
	return p.current, nil
}

// save 原子写入：先写临时文件再改名。调用者必须持有锁。
func (p *Prefs) save() error {
	data, err := json.MarshalIndent(p.current, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}
