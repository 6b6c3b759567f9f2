package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fishinglog/internal/db"
	"gorm.io/gorm"
)

// ErrWeatherLogNotFound 在天气记录不存在时返回
var ErrWeatherLogNotFound = errors.New("weather log not found")

// WeatherLogInput 定义天气记录的可编辑字段
type WeatherLogInput struct {
	TimeOfDay     string
	Sky           string
	WindCondition string
	WindDirection string
	WaterTemp     string
	AirTemp       string
}

// WeatherLogService 管理归属于出钓记录的天气记录
type WeatherLogService struct {
	db *gorm.DB
}

// NewWeatherLogService 构造 WeatherLogService
func NewWeatherLogService(gdb *gorm.DB) *WeatherLogService {
	return &WeatherLogService{db: gdb}
}

// Create 为指定出钓记录新增天气记录，出钓记录必须存在
func (s *WeatherLogService) Create(tripID uint, input WeatherLogInput) (*db.WeatherLog, error) {
	entry := db.WeatherLog{TripID: tripID}
	applyWeatherInput(&entry, input)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tripExists(tx, tripID); err != nil {
			return err
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create weather log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update 覆盖天气记录
func (s *WeatherLogService) Update(id uint, input WeatherLogInput) (*db.WeatherLog, error) {
	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	applyWeatherInput(entry, input)
	if err := s.db.Save(entry).Error; err != nil {
		return nil, fmt.Errorf("update weather log: %w", err)
	}
	return entry, nil
}

// Get 根据 ID 获取天气记录
func (s *WeatherLogService) Get(id uint) (*db.WeatherLog, error) {
	var entry db.WeatherLog
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeatherLogNotFound
		}
		return nil, fmt.Errorf("get weather log: %w", err)
	}
	return &entry, nil
}

// Delete 删除天气记录
func (s *WeatherLogService) Delete(id uint) error {
	result := s.db.Delete(&db.WeatherLog{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete weather log: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWeatherLogNotFound
	}
	return nil
}

// ListByTrip 返回出钓记录下的全部天气记录
func (s *WeatherLogService) ListByTrip(tripID uint) ([]db.WeatherLog, error) {
	var entries []db.WeatherLog
	if err := s.db.Where("trip_id = ?", tripID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list weather logs: %w", err)
	}
	return entries, nil
}

// CountByTrip 统计出钓记录下的天气记录数量
func (s *WeatherLogService) CountByTrip(tripID uint) (int64, error) {
	var count int64
	if err := s.db.Model(&db.WeatherLog{}).Where("trip_id = ?", tripID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count weather logs: %w", err)
	}
	return count, nil
}

// ListAll 返回全部天气记录
func (s *WeatherLogService) ListAll() ([]db.WeatherLog, error) {
	var entries []db.WeatherLog
	if err := s.db.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list weather logs: %w", err)
	}
	return entries, nil
}

func applyWeatherInput(entry *db.WeatherLog, input WeatherLogInput) {
	entry.TimeOfDay = strings.TrimSpace(input.TimeOfDay)
	entry.Sky = strings.TrimSpace(input.Sky)
	entry.WindCondition = strings.TrimSpace(input.WindCondition)
	entry.WindDirection = strings.TrimSpace(input.WindDirection)
	entry.WaterTemp = strings.TrimSpace(input.WaterTemp)
	entry.AirTemp = strings.TrimSpace(input.AirTemp)
}
