package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fishinglog/internal/db"
	"github.com/fishinglog/internal/lunar"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrTripNotFound 在指定出钓记录不存在时返回
	ErrTripNotFound = errors.New("trip not found")
	// ErrTripInvalidDate 当日期不是 YYYY-MM-DD 时返回
	ErrTripInvalidDate = errors.New("trip date must be YYYY-MM-DD")
)

// TripInput 定义创建/更新出钓记录时可配置字段
type TripInput struct {
	Date       string
	Water      string
	Location   string
	Hours      string
	Companions string
	Notes      string
}

// TripService 负责 Trip 的增删改查，删除时级联清理天气与渔获。
type TripService struct {
	db     *gorm.DB
	photos PhotoStore
	log    *zap.Logger
}

// NewTripService 构造 TripService。photos 可以为 nil，此时不清理照片。
func NewTripService(gdb *gorm.DB, photos PhotoStore, log *zap.Logger) *TripService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TripService{db: gdb, photos: photos, log: log}
}

// Create 新建出钓记录
func (s *TripService) Create(input TripInput) (*db.Trip, error) {
	date, err := normalizeTripDate(input.Date)
	if err != nil {
		return nil, err
	}

	trip := db.Trip{
		Date:       date,
		Water:      strings.TrimSpace(input.Water),
		Location:   strings.TrimSpace(input.Location),
		Hours:      strings.TrimSpace(input.Hours),
		Companions: strings.TrimSpace(input.Companions),
		Notes:      strings.TrimSpace(input.Notes),
	}

	if err := s.db.Create(&trip).Error; err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	return &trip, nil
}

// Update 按 ID 覆盖出钓记录
func (s *TripService) Update(id uint, input TripInput) (*db.Trip, error) {
	date, err := normalizeTripDate(input.Date)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	existing.Date = date
	existing.Water = strings.TrimSpace(input.Water)
	existing.Location = strings.TrimSpace(input.Location)
	existing.Hours = strings.TrimSpace(input.Hours)
	existing.Companions = strings.TrimSpace(input.Companions)
	existing.Notes = strings.TrimSpace(input.Notes)

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	return existing, nil
}

// Get 根据 ID 获取出钓记录
func (s *TripService) Get(id uint) (*db.Trip, error) {
	var trip db.Trip
	if err := s.db.First(&trip, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return &trip, nil
}

// Delete 在一个事务内依次删除天气记录、渔获和出钓记录。
// 任一步失败都会整体回滚；照片在提交后尽力清理。
func (s *TripService) Delete(ctx context.Context, id uint) error {
	var photoKeys []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip db.Trip
		if err := tx.First(&trip, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTripNotFound
			}
			return fmt.Errorf("find trip: %w", err)
		}

		if err := tx.Model(&db.FishCaught{}).
			Where("trip_id = ? AND photo <> ''", id).
			Pluck("photo", &photoKeys).Error; err != nil {
			return fmt.Errorf("collect catch photos: %w", err)
		}

		if err := tx.Where("trip_id = ?", id).Delete(&db.WeatherLog{}).Error; err != nil {
			return fmt.Errorf("delete weather logs: %w", err)
		}
		if err := tx.Where("trip_id = ?", id).Delete(&db.FishCaught{}).Error; err != nil {
			return fmt.Errorf("delete catches: %w", err)
		}
		if err := tx.Delete(&trip).Error; err != nil {
			return fmt.Errorf("delete trip: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	removePhotos(ctx, s.photos, s.log, photoKeys)
	return nil
}

// ListByDate 返回某一天的所有出钓记录
func (s *TripService) ListByDate(date string) ([]db.Trip, error) {
	date, err := normalizeTripDate(date)
	if err != nil {
		return nil, err
	}

	var trips []db.Trip
	if err := s.db.Where("date = ?", date).Order("id ASC").Find(&trips).Error; err != nil {
		return nil, fmt.Errorf("list trips by date: %w", err)
	}
	return trips, nil
}

// ListBetween 返回 [start, end] 闭区间内的出钓记录，按日期排序
func (s *TripService) ListBetween(start, end string) ([]db.Trip, error) {
	start, err := normalizeTripDate(start)
	if err != nil {
		return nil, err
	}
	end, err = normalizeTripDate(end)
	if err != nil {
		return nil, err
	}

	var trips []db.Trip
	if err := s.db.Where("date >= ? AND date <= ?", start, end).
		Order("date ASC, id ASC").
		Find(&trips).Error; err != nil {
		return nil, fmt.Errorf("list trips between: %w", err)
	}
	return trips, nil
}

// CountByDate 统计某一天的出钓记录数量
func (s *TripService) CountByDate(date string) (int64, error) {
	date, err := normalizeTripDate(date)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.Model(&db.Trip{}).Where("date = ?", date).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count trips: %w", err)
	}
	return count, nil
}

// DaysWithLogs 返回指定月份中有记录的日期（日），升序
func (s *TripService) DaysWithLogs(year int, month time.Month) ([]int, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	var dates []string
	if err := s.db.Model(&db.Trip{}).
		Where("date >= ? AND date <= ?", first.Format(lunar.DateFormat), last.Format(lunar.DateFormat)).
		Distinct().
		Pluck("date", &dates).Error; err != nil {
		return nil, fmt.Errorf("list logged days: %w", err)
	}

	days := make([]int, 0, len(dates))
	for _, d := range dates {
		day, err := strconv.Atoi(d[len(d)-2:])
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Ints(days)
	return days, nil
}

// ListAll 返回全部出钓记录
func (s *TripService) ListAll() ([]db.Trip, error) {
	var trips []db.Trip
	if err := s.db.Order("date ASC, id ASC").Find(&trips).Error; err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

func normalizeTripDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	parsed, err := time.Parse(lunar.DateFormat, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrTripInvalidDate, value)
	}
	return parsed.Format(lunar.DateFormat), nil
}

func tripExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&db.Trip{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check trip: %w", err)
	}
	if count == 0 {
		return ErrTripNotFound
	}
	return nil
}

func removePhotos(ctx context.Context, photos PhotoStore, log *zap.Logger, keys []string) {
	if photos == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := photos.Delete(ctx, key); err != nil {
			log.Error("remove photo", zap.String("key", key), zap.Error(err))
		}
	}
}
