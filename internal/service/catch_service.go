package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fishinglog/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrCatchNotFound 在渔获不存在时返回
	ErrCatchNotFound = errors.New("catch not found")
	// ErrCatchSpeciesRequired 当未填写鱼种时返回
	ErrCatchSpeciesRequired = errors.New("catch species is required")
	// ErrPhotoStoreUnavailable 表示未配置照片存储
	ErrPhotoStoreUnavailable = errors.New("photo storage is not configured")
)

// CatchInput 定义渔获的可编辑字段
type CatchInput struct {
	Species string
	Gear    []string
	Length  string
	Weight  string
	Time    string
	Details string
}

// CatchService 管理渔获记录及其照片
type CatchService struct {
	db           *gorm.DB
	photos       PhotoStore
	maxDimension int
	log          *zap.Logger
}

// NewCatchService 构造 CatchService。maxDimension 为照片最长边像素上限。
func NewCatchService(gdb *gorm.DB, photos PhotoStore, maxDimension int, log *zap.Logger) *CatchService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatchService{db: gdb, photos: photos, maxDimension: maxDimension, log: log}
}

// Create 新增渔获；photo 非空时压缩后写入照片存储
func (s *CatchService) Create(ctx context.Context, tripID uint, input CatchInput, photo []byte) (*db.FishCaught, error) {
	if err := validateCatchInput(input); err != nil {
		return nil, err
	}

	catch := db.FishCaught{TripID: tripID}
	applyCatchInput(&catch, input)

	key, err := s.storePhoto(ctx, photo)
	if err != nil {
		return nil, err
	}
	catch.Photo = key

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tripExists(tx, tripID); err != nil {
			return err
		}
		if err := tx.Create(&catch).Error; err != nil {
			return fmt.Errorf("create catch: %w", err)
		}
		return nil
	})
	if err != nil {
		removePhotos(ctx, s.photos, s.log, []string{key})
		return nil, err
	}
	return &catch, nil
}

// Update 覆盖渔获字段；photo 非空时替换照片
func (s *CatchService) Update(ctx context.Context, id uint, input CatchInput, photo []byte) (*db.FishCaught, error) {
	if err := validateCatchInput(input); err != nil {
		return nil, err
	}

	catch, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	key, err := s.storePhoto(ctx, photo)
	if err != nil {
		return nil, err
	}

	previous := catch.Photo
	applyCatchInput(catch, input)
	if key != "" {
		catch.Photo = key
	}

	if err := s.db.WithContext(ctx).Save(catch).Error; err != nil {
		removePhotos(ctx, s.photos, s.log, []string{key})
		return nil, fmt.Errorf("update catch: %w", err)
	}

	if key != "" && previous != "" {
		removePhotos(ctx, s.photos, s.log, []string{previous})
	}
	return catch, nil
}

// RemovePhoto 移除渔获的照片
func (s *CatchService) RemovePhoto(ctx context.Context, id uint) (*db.FishCaught, error) {
	catch, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if catch.Photo == "" {
		return catch, nil
	}

	previous := catch.Photo
	if err := s.db.WithContext(ctx).Model(catch).Update("photo", "").Error; err != nil {
		return nil, fmt.Errorf("clear catch photo: %w", err)
	}
	catch.Photo = ""

	removePhotos(ctx, s.photos, s.log, []string{previous})
	return catch, nil
}

// Get 根据 ID 获取渔获
func (s *CatchService) Get(id uint) (*db.FishCaught, error) {
	var catch db.FishCaught
	if err := s.db.First(&catch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatchNotFound
		}
		return nil, fmt.Errorf("get catch: %w", err)
	}
	return &catch, nil
}

// Delete 删除渔获及其照片
func (s *CatchService) Delete(ctx context.Context, id uint) error {
	catch, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(catch).Error; err != nil {
		return fmt.Errorf("delete catch: %w", err)
	}

	removePhotos(ctx, s.photos, s.log, []string{catch.Photo})
	return nil
}

// ListByTrip 返回出钓记录下的渔获
func (s *CatchService) ListByTrip(tripID uint) ([]db.FishCaught, error) {
	var catches []db.FishCaught
	if err := s.db.Where("trip_id = ?", tripID).Order("id ASC").Find(&catches).Error; err != nil {
		return nil, fmt.Errorf("list catches: %w", err)
	}
	return catches, nil
}

// CountByTrip 统计出钓记录下的渔获数量
func (s *CatchService) CountByTrip(tripID uint) (int64, error) {
	var count int64
	if err := s.db.Model(&db.FishCaught{}).Where("trip_id = ?", tripID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count catches: %w", err)
	}
	return count, nil
}

// ListAll 返回全部渔获
func (s *CatchService) ListAll() ([]db.FishCaught, error) {
	var catches []db.FishCaught
	if err := s.db.Order("id ASC").Find(&catches).Error; err != nil {
		return nil, fmt.Errorf("list catches: %w", err)
	}
	return catches, nil
}

// OpenPhoto 打开渔获照片，调用方负责关闭
func (s *CatchService) OpenPhoto(ctx context.Context, id uint) (io.ReadCloser, error) {
	catch, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if catch.Photo == "" {
		return nil, ErrPhotoNotFound
	}
	if s.photos == nil {
		return nil, ErrPhotoStoreUnavailable
	}
	return s.photos.Open(ctx, catch.Photo)
}

func (s *CatchService) storePhoto(ctx context.Context, photo []byte) (string, error) {
	if len(photo) == 0 {
		return "", nil
	}
	if s.photos == nil {
		return "", ErrPhotoStoreUnavailable
	}

	prepared, err := PreparePhoto(photo, s.maxDimension)
	if err != nil {
		return "", err
	}

	key := NewPhotoKey()
	if err := s.photos.Put(ctx, key, prepared); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return key, nil
}

func validateCatchInput(input CatchInput) error {
	if strings.TrimSpace(input.Species) == "" {
		return ErrCatchSpeciesRequired
	}
	return nil
}

func applyCatchInput(catch *db.FishCaught, input CatchInput) {
	catch.Species = strings.TrimSpace(input.Species)
	catch.Gear = normalizeGearNames(input.Gear)
	catch.Length = strings.TrimSpace(input.Length)
	catch.Weight = strings.TrimSpace(input.Weight)
	catch.Time = strings.TrimSpace(input.Time)
	catch.Details = strings.TrimSpace(input.Details)
}

func normalizeGearNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
