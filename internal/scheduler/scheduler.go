package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fishinglog/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	backupPrefix     = "fishlog-"
	backupSuffix     = ".zip"
	backupTimeLayout = "20060102-150405"
	backupTimeout    = 5 * time.Minute
)

// Exporter 把完整的日志归档写入 w
type Exporter interface {
	Export(ctx context.Context, w io.Writer) error
}

// Options 描述定时备份
type Options struct {
	Spec     string
	Dir      string
	Keep     int
	Location *time.Location
}

// Scheduler 按 cron 表达式定时导出归档并清理旧备份
type Scheduler struct {
	cron     *cron.Cron
	exporter Exporter
	opts     Options
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler 构造 Scheduler，表达式无效时返回错误
func NewScheduler(opts Options, exporter Exporter, m *metrics.Metrics, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Keep < 1 {
		opts.Keep = 1
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(opts.Location)),
		exporter: exporter,
		opts:     opts,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
	if _, err := s.cron.AddFunc(opts.Spec, s.runBackup); err != nil {
		return nil, fmt.Errorf("schedule backup %q: %w", opts.Spec, err)
	}
	return s, nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.logger.Info("starting backup scheduler", zap.String("spec", s.opts.Spec), zap.String("dir", s.opts.Dir))
	s.cron.Start()
}

// Stop 停止调度并等待正在运行的备份结束
func (s *Scheduler) Stop() {
	s.logger.Info("stopping backup scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	path, err := s.Backup(ctx)
	s.metrics.ObserveBackup(err)
	if err != nil {
		s.logger.Error("backup failed", zap.Error(err))
		return
	}
	s.logger.Info("backup written", zap.String("path", path))
}

// Backup 立即写入一份备份并按 Keep 清理旧文件，返回备份路径
func (s *Scheduler) Backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := backupPrefix + s.now().In(s.opts.Location).Format(backupTimeLayout) + backupSuffix
	final := filepath.Join(s.opts.Dir, name)

	// 先写临时文件，完整后再改名，避免留下半截的归档
	tmp, err := os.CreateTemp(s.opts.Dir, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("create temp backup: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := s.exporter.Export(ctx, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("export backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return "", fmt.Errorf("rename backup: %w", err)
	}

	if err := s.prune(); err != nil {
		s.logger.Warn("prune backups failed", zap.Error(err))
	}
	return final, nil
}

// prune 只保留最新的 Keep 份备份
func (s *Scheduler) prune() error {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		backups = append(backups, name)
	}
	if len(backups) <= s.opts.Keep {
		return nil
	}

	// 文件名中的时间戳按字典序即时间序
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-s.opts.Keep] {
		if err := os.Remove(filepath.Join(s.opts.Dir, name)); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		s.logger.Info("removed old backup", zap.String("name", name))
	}
	return nil
}
