package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/fishinglog/internal/offline"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxImportSize 限制导入归档的大小
const maxImportSize = 512 << 20

// ExportArchive 以 zip 下载全部数据与照片
func (a *API) ExportArchive(c *gin.Context) {
	var buf bytes.Buffer
	if err := a.archive.Export(c.Request.Context(), &buf); err != nil {
		a.respondServiceError(c, err)
		return
	}

	name := fmt.Sprintf("fishlog-%s.zip", a.now().In(a.loc).Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// ImportArchive 用上传的 zip 或旧版 JSON 完整替换本地数据，需要 confirm=true
func (a *API) ImportArchive(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.DefaultPostForm("confirm", c.Query("confirm")))
	if !confirmed {
		respondError(c, http.StatusBadRequest, "import replaces all data; resend with confirm=true")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file is required")
		return
	}
	if header.Size > maxImportSize {
		respondError(c, http.StatusRequestEntityTooLarge, "archive too large")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid upload")
		return
	}
	defer file.Close()

	result, err := a.archive.ImportAuto(c.Request.Context(), io.LimitReader(file, maxImportSize))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	a.logger.Info("archive imported",
		zap.String("file", header.Filename),
		zap.Int("trips", result.Trips),
		zap.Int("catches", result.Catches),
		zap.Int("photos", result.Photos),
	)
	c.JSON(http.StatusOK, gin.H{"imported": result})
}

// GetOfflineManifest 返回外壳 service worker 使用的缓存清单；
// 传入 caches=a&caches=b 时一并返回需要清理的旧缓存
func (a *API) GetOfflineManifest(c *gin.Context) {
	manifest, err := offline.Load()
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"manifest": manifest,
		"current":  manifest.Current(),
		"stale":    manifest.StaleCaches(c.QueryArray("caches")),
	})
}
