package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/fishinglog/internal/db"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	archiveVersion   = 2
	archiveDataFile  = "data.json"
	archivePhotoDir  = "photos/"
	maxArchiveMember = 64 << 20
)

var (
	// ErrArchiveInvalid 表示导入内容无法识别或数据不一致
	ErrArchiveInvalid = errors.New("invalid archive")

	zipMagic = []byte("PK\x03\x04")
)

// ArchiveData 是导出文件中 data.json 的结构，也兼容旧版纯 JSON 备份。
type ArchiveData struct {
	Version     int             `json:"version"`
	ExportedAt  string          `json:"exportedAt"`
	Trips       []db.Trip       `json:"trips"`
	WeatherLogs []db.WeatherLog `json:"weatherLogs"`
	FishCaught  []db.FishCaught `json:"fishCaught"`
	Tacklebox   []GearItem      `json:"tacklebox"`
	GearTypes   []string        `json:"gearTypes"`
}

// ImportResult 汇总导入的记录数
type ImportResult struct {
	Trips       int `json:"trips"`
	WeatherLogs int `json:"weatherLogs"`
	Catches     int `json:"catches"`
	Photos      int `json:"photos"`
	Gear        int `json:"gear"`
	GearTypes   int `json:"gearTypes"`
}

// ArchiveService 负责整库导出与导入。导入会在一个事务内完全替换本地数据，并保留原有 ID。
type ArchiveService struct {
	db           *gorm.DB
	photos       PhotoStore
	maxDimension int
	log          *zap.Logger
	now          func() time.Time
}

// NewArchiveService 构造 ArchiveService
func NewArchiveService(gdb *gorm.DB, photos PhotoStore, maxDimension int, log *zap.Logger) *ArchiveService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArchiveService{db: gdb, photos: photos, maxDimension: maxDimension, log: log, now: time.Now}
}

// Snapshot 读取当前全部数据
func (s *ArchiveService) Snapshot(ctx context.Context) (ArchiveData, error) {
	data := ArchiveData{Version: archiveVersion, ExportedAt: s.now().UTC().Format(time.RFC3339)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id ASC").Find(&data.Trips).Error; err != nil {
			return fmt.Errorf("export trips: %w", err)
		}
		if err := tx.Order("id ASC").Find(&data.WeatherLogs).Error; err != nil {
			return fmt.Errorf("export weather logs: %w", err)
		}
		if err := tx.Order("id ASC").Find(&data.FishCaught).Error; err != nil {
			return fmt.Errorf("export catches: %w", err)
		}
		var err error
		if data.Tacklebox, err = loadGear(tx); err != nil {
			return err
		}
		data.GearTypes, err = loadGearTypes(tx)
		return err
	})
	return data, err
}

// Export 将全部数据写为 zip：data.json 加上 photos/<key>
func (s *ArchiveService) Export(ctx context.Context, w io.Writer) error {
	data, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	manifest, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode archive data: %w", err)
	}
	fw, err := zw.Create(archiveDataFile)
	if err != nil {
		return fmt.Errorf("create archive data: %w", err)
	}
	if _, err := fw.Write(manifest); err != nil {
		return fmt.Errorf("write archive data: %w", err)
	}

	for _, c := range data.FishCaught {
		if c.Photo == "" || s.photos == nil {
			continue
		}
		if err := s.copyPhotoToZip(ctx, zw, c.Photo); err != nil {
			if errors.Is(err, ErrPhotoNotFound) {
				s.log.Warn("photo missing during export", zap.Uint("catch_id", c.ID), zap.String("key", c.Photo))
				continue
			}
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func (s *ArchiveService) copyPhotoToZip(ctx context.Context, zw *zip.Writer, key string) error {
	rc, err := s.photos.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	fw, err := zw.CreateHeader(&zip.FileHeader{Name: archivePhotoDir + key, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create archive photo: %w", err)
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("write archive photo: %w", err)
	}
	return nil
}

// ImportAuto 根据文件头判断是 zip 还是旧版 JSON
func (s *ArchiveService) ImportAuto(ctx context.Context, r io.Reader) (ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read import: %w", err)
	}
	if bytes.HasPrefix(raw, zipMagic) {
		return s.Import(ctx, bytes.NewReader(raw), int64(len(raw)))
	}
	return s.ImportLegacyJSON(ctx, bytes.NewReader(raw))
}

// Import 读取 Export 生成的 zip 并替换本地数据
func (s *ArchiveService) Import(ctx context.Context, r io.ReaderAt, size int64) (ImportResult, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrArchiveInvalid, err)
	}

	var (
		data     ArchiveData
		haveData bool
		photos   = map[string][]byte{}
	)
	for _, f := range zr.File {
		switch {
		case f.Name == archiveDataFile:
			raw, err := readZipMember(f)
			if err != nil {
				return ImportResult{}, err
			}
			if err := json.Unmarshal(raw, &data); err != nil {
				return ImportResult{}, fmt.Errorf("%w: decode %s: %v", ErrArchiveInvalid, archiveDataFile, err)
			}
			haveData = true
		case strings.HasPrefix(f.Name, archivePhotoDir) && !f.FileInfo().IsDir():
			key := path.Base(f.Name)
			if validatePhotoKey(key) != nil {
				continue
			}
			raw, err := readZipMember(f)
			if err != nil {
				return ImportResult{}, err
			}
			photos[key] = raw
		}
	}
	if !haveData {
		return ImportResult{}, fmt.Errorf("%w: missing %s", ErrArchiveInvalid, archiveDataFile)
	}

	referenced := map[string][]byte{}
	for i := range data.FishCaught {
		key := data.FishCaught[i].Photo
		if key == "" {
			continue
		}
		raw, ok := photos[key]
		if !ok {
			s.log.Warn("archive photo missing", zap.Uint("catch_id", data.FishCaught[i].ID), zap.String("key", key))
			data.FishCaught[i].Photo = ""
			continue
		}
		referenced[key] = raw
	}

	return s.replaceAll(ctx, data, referenced)
}

// ImportLegacyJSON 读取旧版纯 JSON 备份，照片以 data URL 内联
func (s *ArchiveService) ImportLegacyJSON(ctx context.Context, r io.Reader) (ImportResult, error) {
	var data ArchiveData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrArchiveInvalid, err)
	}

	photos := map[string][]byte{}
	for i := range data.FishCaught {
		inline := data.FishCaught[i].Photo
		if inline == "" {
			continue
		}
		data.FishCaught[i].Photo = ""

		raw, err := decodeDataURL(inline)
		if err != nil {
			s.log.Warn("skip legacy photo", zap.Uint("catch_id", data.FishCaught[i].ID), zap.Error(err))
			continue
		}
		prepared, err := PreparePhoto(raw, s.maxDimension)
		if err != nil {
			s.log.Warn("skip legacy photo", zap.Uint("catch_id", data.FishCaught[i].ID), zap.Error(err))
			continue
		}
		key := NewPhotoKey()
		photos[key] = prepared
		data.FishCaught[i].Photo = key
	}

	return s.replaceAll(ctx, data, photos)
}

func (s *ArchiveService) replaceAll(ctx context.Context, data ArchiveData, photos map[string][]byte) (ImportResult, error) {
	if err := validateArchive(&data); err != nil {
		return ImportResult{}, err
	}
	if len(photos) > 0 && s.photos == nil {
		return ImportResult{}, ErrPhotoStoreUnavailable
	}

	var previous []string
	if err := s.db.WithContext(ctx).Model(&db.FishCaught{}).Where("photo <> ''").Pluck("photo", &previous).Error; err != nil {
		return ImportResult{}, fmt.Errorf("collect existing photos: %w", err)
	}

	// 导入的照片一律写到新 key 下，事务失败时现有照片不会被覆盖
	rekeyed := make(map[string]string, len(photos))
	written := make([]string, 0, len(photos))
	for key, raw := range photos {
		fresh := NewPhotoKey()
		if err := s.photos.Put(ctx, fresh, raw); err != nil {
			removePhotos(ctx, s.photos, s.log, written)
			return ImportResult{}, fmt.Errorf("store imported photo: %w", err)
		}
		rekeyed[key] = fresh
		written = append(written, fresh)
	}
	for i := range data.FishCaught {
		if key := data.FishCaught[i].Photo; key != "" {
			data.FishCaught[i].Photo = rekeyed[key]
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&db.WeatherLog{}, &db.FishCaught{}, &db.Trip{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear existing data: %w", err)
			}
		}

		if len(data.Trips) > 0 {
			if err := tx.CreateInBatches(&data.Trips, 200).Error; err != nil {
				return fmt.Errorf("import trips: %w", err)
			}
		}
		if len(data.WeatherLogs) > 0 {
			if err := tx.CreateInBatches(&data.WeatherLogs, 200).Error; err != nil {
				return fmt.Errorf("import weather logs: %w", err)
			}
		}
		if len(data.FishCaught) > 0 {
			if err := tx.CreateInBatches(&data.FishCaught, 200).Error; err != nil {
				return fmt.Errorf("import catches: %w", err)
			}
		}

		if err := resetSequences(tx, "trips", "weather_logs", "fish_caught"); err != nil {
			return err
		}

		return replaceTacklebox(tx, Tacklebox{Gear: data.Tacklebox, Types: data.GearTypes})
	})
	if err != nil {
		removePhotos(ctx, s.photos, s.log, written)
		return ImportResult{}, err
	}

	removePhotos(ctx, s.photos, s.log, previous)

	types := data.GearTypes
	if types == nil {
		types = DefaultGearTypes
	}
	return ImportResult{
		Trips:       len(data.Trips),
		WeatherLogs: len(data.WeatherLogs),
		Catches:     len(data.FishCaught),
		Photos:      len(photos),
		Gear:        len(data.Tacklebox),
		GearTypes:   len(types),
	}, nil
}

// validateArchive 校验日期格式和外键引用，任何不一致都拒绝整个导入
func validateArchive(data *ArchiveData) error {
	tripIDs := make(map[uint]struct{}, len(data.Trips))
	for i := range data.Trips {
		date, err := normalizeTripDate(data.Trips[i].Date)
		if err != nil {
			return fmt.Errorf("%w: trip %d: %v", ErrArchiveInvalid, data.Trips[i].ID, err)
		}
		data.Trips[i].Date = date
		if data.Trips[i].ID == 0 {
			return fmt.Errorf("%w: trip without id", ErrArchiveInvalid)
		}
		if _, dup := tripIDs[data.Trips[i].ID]; dup {
			return fmt.Errorf("%w: duplicate trip id %d", ErrArchiveInvalid, data.Trips[i].ID)
		}
		tripIDs[data.Trips[i].ID] = struct{}{}
	}

	for _, w := range data.WeatherLogs {
		if _, ok := tripIDs[w.TripID]; !ok {
			return fmt.Errorf("%w: weather log %d references unknown trip %d", ErrArchiveInvalid, w.ID, w.TripID)
		}
	}
	for i, c := range data.FishCaught {
		if _, ok := tripIDs[c.TripID]; !ok {
			return fmt.Errorf("%w: catch %d references unknown trip %d", ErrArchiveInvalid, c.ID, c.TripID)
		}
		if c.Gear == nil {
			data.FishCaught[i].Gear = []string{}
		}
	}
	return nil
}

// resetSequences 在 postgres 上把自增序列推进到导入后的最大 ID
func resetSequences(tx *gorm.DB, tables ...string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range tables {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
			table, table,
		)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}

func readZipMember(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxArchiveMember {
		return nil, fmt.Errorf("%w: %s is too large", ErrArchiveInvalid, f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrArchiveInvalid, f.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxArchiveMember+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrArchiveInvalid, f.Name, err)
	}
	if len(raw) > maxArchiveMember {
		return nil, fmt.Errorf("%w: %s is too large", ErrArchiveInvalid, f.Name)
	}
	return raw, nil
}

// decodeDataURL 解析 data:image/...;base64,xxx
func decodeDataURL(value string) ([]byte, error) {
	if !strings.HasPrefix(value, "data:") {
		return nil, errors.New("photo is not a data URL")
	}
	comma := strings.IndexByte(value, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URL")
	}
	meta := value[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("data URL is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(value[comma+1:])
}
