package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load err: %v", err)
	}

	got := p.Get()
	if got.HideBalances {
		t.Fatalf("default hide_balances should be false")
	}
	if got.ChartSeed == 0 {
		t.Fatalf("default chart_seed should be non-zero")
	}

	// 默认值必须已经落盘
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("prefs file not written: %v", err)
	}
}

func TestSetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	if err := p.SetHideBalances(true); err != nil {
		t.Fatalf("set hide err: %v", err)
	}
	if err := p.SetChartSeed(42); err != nil {
		t.Fatalf("set seed err: %v", err)
	}

	// 重新加载验证持久化
	p2, err := Load(path)
	if err != nil {
		t.Fatalf("reload err: %v", err)
	}
	got := p2.Get()
	if !got.HideBalances || got.ChartSeed != 42 {
		t.Fatalf("reloaded settings = %+v", got)
	}
}

func TestLoadFixesZeroSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte(`{"hide_balances":true,"chart_seed":0}`), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	got := p.Get()
	if got.ChartSeed == 0 {
		t.Fatalf("zero seed should be replaced")
	}
	if !got.HideBalances {
		t.Fatalf("hide_balances should survive seed fix")
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	if err := p.SetHideBalances(true); err != nil {
		t.Fatalf("set err: %v", err)
	}

	settings, err := p.Reset()
	if err != nil {
		t.Fatalf("reset err: %v", err)
	}
	if settings.HideBalances {
		t.Fatalf("reset should restore hide_balances=false")
	}

	// 文件内容只包含两个字段
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read err: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("prefs file should hold exactly 2 fields, got %v", m)
	}
}
