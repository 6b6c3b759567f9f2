package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for uploaded photos
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/image/draw"
)

var (
	// ErrPhotoNotFound 表示照片不存在
	ErrPhotoNotFound = errors.New("photo not found")
	// ErrPhotoInvalid 表示上传内容无法解码为图片
	ErrPhotoInvalid = errors.New("photo is not a supported image")
	// ErrPhotoKeyInvalid 表示 key 含有路径分隔符等非法字符
	ErrPhotoKeyInvalid = errors.New("invalid photo key")
)

const photoContentType = "image/jpeg"

// PhotoStore 保存渔获照片的二进制内容。
type PhotoStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewPhotoKey 生成新的照片 key。
func NewPhotoKey() string {
	return uuid.NewString() + ".jpg"
}

func validatePhotoKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrPhotoKeyInvalid, key)
	}
	return nil
}

// PreparePhoto 解码上传的图片，按最长边缩放到 maxDimension 以内并重新编码为 JPEG。
// maxDimension <= 0 时不缩放。
func PreparePhoto(data []byte, maxDimension int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoInvalid, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxDimension > 0 && (w > maxDimension || h > maxDimension) {
		if w >= h {
			h = h * maxDimension / w
			w = maxDimension
		} else {
			w = w * maxDimension / h
			h = maxDimension
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}

// LocalPhotoStore 将照片保存在本地目录。
type LocalPhotoStore struct {
	dir string
}

// NewLocalPhotoStore 创建目录并返回本地照片存储。
func NewLocalPhotoStore(dir string) (*LocalPhotoStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("photo directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo directory: %w", err)
	}
	return &LocalPhotoStore{dir: dir}, nil
}

func (s *LocalPhotoStore) path(key string) (string, error) {
	if err := validatePhotoKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

// Put 写入照片。
func (s *LocalPhotoStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}
	return nil
}

// Open 打开照片，调用方负责关闭。
func (s *LocalPhotoStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("open photo: %w", err)
	}
	return f, nil
}

// Delete 删除照片，不存在时视为成功。
func (s *LocalPhotoStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// MinioOptions 描述对象存储连接参数。
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioPhotoStore 将照片保存在 MinIO/S3 兼容的对象存储中。
type MinioPhotoStore struct {
	client *minio.Client
	bucket string
}

// NewMinioPhotoStore 连接对象存储，bucket 不存在时自动创建。
func NewMinioPhotoStore(ctx context.Context, opts MinioOptions) (*MinioPhotoStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioPhotoStore{client: client, bucket: opts.Bucket}, nil
}

// Put 上传照片。
func (s *MinioPhotoStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validatePhotoKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: photoContentType,
	})
	if err != nil {
		return fmt.Errorf("upload photo: %w", err)
	}
	return nil
}

// Open 读取照片。
func (s *MinioPhotoStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validatePhotoKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	// GetObject 是惰性的，Stat 才会暴露 NoSuchKey
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("stat photo: %w", err)
	}
	return obj, nil
}

// Delete 删除照片。
func (s *MinioPhotoStore) Delete(ctx context.Context, key string) error {
	if err := validatePhotoKey(key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}
