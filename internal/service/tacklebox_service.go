package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fishinglog/internal/db"
	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrGearNotFound 在钓具条目不存在时返回
	ErrGearNotFound = errors.New("gear item not found")
	// ErrGearNameRequired 当钓具名称为空时返回
	ErrGearNameRequired = errors.New("gear name is required")
	// ErrGearTypeRequired 当类型名称为空时返回
	ErrGearTypeRequired = errors.New("gear type name is required")
	// ErrGearTypeExists 当类型名称已存在时返回
	ErrGearTypeExists = errors.New("gear type already exists")
	// ErrGearTypeNotFound 当类型不存在时返回
	ErrGearTypeNotFound = errors.New("gear type not found")
)

// DefaultGearTypes 是首次读取时的类型列表
var DefaultGearTypes = []string{"Lure", "Rod", "Reel"}

// GearItem 是钓具箱中的一件装备
type GearItem struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Brand  string `json:"brand"`
	Type   string `json:"type"`
	Colour string `json:"colour"`
}

// Tacklebox 是钓具箱的完整快照
type Tacklebox struct {
	Gear  []GearItem `json:"gear"`
	Types []string   `json:"types"`
}

// TackleboxService 将钓具与类型列表以 JSON 形式保存在 settings 表中。
// 每次修改都在一个事务内读改写两行设置。
type TackleboxService struct {
	db *gorm.DB
}

// NewTackleboxService 构造 TackleboxService
func NewTackleboxService(gdb *gorm.DB) *TackleboxService {
	return &TackleboxService{db: gdb}
}

// Get 返回钓具和类型
func (s *TackleboxService) Get(ctx context.Context) (Tacklebox, error) {
	var box Tacklebox
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if box.Gear, err = loadGear(tx); err != nil {
			return err
		}
		box.Types, err = loadGearTypes(tx)
		return err
	})
	return box, err
}

// ListGear 返回全部钓具
func (s *TackleboxService) ListGear(ctx context.Context) ([]GearItem, error) {
	return loadGear(s.db.WithContext(ctx))
}

// SaveGear 新建（ID 为 0）或按 ID 更新钓具
func (s *TackleboxService) SaveGear(ctx context.Context, item GearItem) (GearItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.Brand = strings.TrimSpace(item.Brand)
	item.Type = strings.TrimSpace(item.Type)
	item.Colour = strings.TrimSpace(item.Colour)
	if item.Name == "" {
		return GearItem{}, ErrGearNameRequired
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if item.Type != "" {
			types, err := loadGearTypes(tx)
			if err != nil {
				return err
			}
			if !slices.Contains(types, item.Type) {
				return fmt.Errorf("%w: %s", ErrGearTypeNotFound, item.Type)
			}
		}

		gear, err := loadGear(tx)
		if err != nil {
			return err
		}

		if item.ID == 0 {
			item.ID = nextGearID(gear)
			gear = append(gear, item)
		} else {
			idx := slices.IndexFunc(gear, func(g GearItem) bool { return g.ID == item.ID })
			if idx < 0 {
				return ErrGearNotFound
			}
			gear[idx] = item
		}

		return saveSetting(tx, db.SettingKeyTacklebox, gear)
	})
	if err != nil {
		return GearItem{}, err
	}
	return item, nil
}

// DeleteGear 删除钓具。历史渔获中按名称的引用保持不变。
func (s *TackleboxService) DeleteGear(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gear, err := loadGear(tx)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(gear, func(g GearItem) bool { return g.ID == id })
		if idx < 0 {
			return ErrGearNotFound
		}
		gear = slices.Delete(gear, idx, idx+1)
		return saveSetting(tx, db.SettingKeyTacklebox, gear)
	})
}

// ListTypes 返回类型列表，未保存过时返回默认值
func (s *TackleboxService) ListTypes(ctx context.Context) ([]string, error) {
	return loadGearTypes(s.db.WithContext(ctx))
}

// AddType 新增类型，不允许重复
func (s *TackleboxService) AddType(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrGearTypeRequired
	}

	var types []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if types, err = loadGearTypes(tx); err != nil {
			return err
		}
		if slices.Contains(types, name) {
			return fmt.Errorf("%w: %s", ErrGearTypeExists, name)
		}
		types = append(types, name)
		return saveSetting(tx, db.SettingKeyGearTypes, types)
	})
	if err != nil {
		return nil, err
	}
	return types, nil
}

// RenameType 重命名类型，并同步更新使用该类型的钓具
func (s *TackleboxService) RenameType(ctx context.Context, oldName, newName string) ([]string, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, ErrGearTypeRequired
	}

	var types []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if types, err = loadGearTypes(tx); err != nil {
			return err
		}
		idx := slices.Index(types, oldName)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrGearTypeNotFound, oldName)
		}
		if oldName == newName {
			return nil
		}
		if slices.Contains(types, newName) {
			return fmt.Errorf("%w: %s", ErrGearTypeExists, newName)
		}
		types[idx] = newName

		gear, err := loadGear(tx)
		if err != nil {
			return err
		}
		for i := range gear {
			if gear[i].Type == oldName {
				gear[i].Type = newName
			}
		}

		if err := saveSetting(tx, db.SettingKeyGearTypes, types); err != nil {
			return err
		}
		return saveSetting(tx, db.SettingKeyTacklebox, gear)
	})
	if err != nil {
		return nil, err
	}
	return types, nil
}

// DeleteType 删除类型以及该类型下的所有钓具，返回被删除的钓具数量
func (s *TackleboxService) DeleteType(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	removed := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		types, err := loadGearTypes(tx)
		if err != nil {
			return err
		}
		idx := slices.Index(types, name)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrGearTypeNotFound, name)
		}
		types = slices.Delete(types, idx, idx+1)

		gear, err := loadGear(tx)
		if err != nil {
			return err
		}
		kept := gear[:0]
		for _, g := range gear {
			if g.Type == name {
				removed++
				continue
			}
			kept = append(kept, g)
		}

		if err := saveSetting(tx, db.SettingKeyGearTypes, types); err != nil {
			return err
		}
		return saveSetting(tx, db.SettingKeyTacklebox, kept)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// GearUsage 统计引用了该钓具名称的渔获数量
func (s *TackleboxService) GearUsage(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)

	var catches []db.FishCaught
	if err := s.db.WithContext(ctx).Select("id", "gear").Find(&catches).Error; err != nil {
		return 0, fmt.Errorf("load catch gear: %w", err)
	}

	count := 0
	for _, c := range catches {
		if slices.Contains(c.Gear, name) {
			count++
		}
	}
	return count, nil
}

// replaceTacklebox 在导入时整体覆盖钓具箱
func replaceTacklebox(tx *gorm.DB, box Tacklebox) error {
	gear := box.Gear
	if gear == nil {
		gear = []GearItem{}
	}
	types := box.Types
	if types == nil {
		types = slices.Clone(DefaultGearTypes)
	}
	if err := saveSetting(tx, db.SettingKeyTacklebox, gear); err != nil {
		return err
	}
	return saveSetting(tx, db.SettingKeyGearTypes, types)
}

func loadGear(tx *gorm.DB) ([]GearItem, error) {
	gear := []GearItem{}
	if _, err := loadSetting(tx, db.SettingKeyTacklebox, &gear); err != nil {
		return nil, err
	}
	return gear, nil
}

func loadGearTypes(tx *gorm.DB) ([]string, error) {
	var types []string
	found, err := loadSetting(tx, db.SettingKeyGearTypes, &types)
	if err != nil {
		return nil, err
	}
	if !found {
		return slices.Clone(DefaultGearTypes), nil
	}
	if types == nil {
		types = []string{}
	}
	return types, nil
}

func nextGearID(gear []GearItem) int64 {
	var maxID int64
	for _, g := range gear {
		if g.ID > maxID {
			maxID = g.ID
		}
	}
	return maxID + 1
}

func loadSetting(tx *gorm.DB, key string, dest any) (bool, error) {
	var setting db.Setting
	if err := tx.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load setting %s: %w", key, err)
	}
	if strings.TrimSpace(setting.Value) == "" {
		return true, nil
	}
	if err := json.Unmarshal([]byte(setting.Value), dest); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func saveSetting(tx *gorm.DB, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	setting := db.Setting{Key: key, Value: string(payload)}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      setting.Value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
