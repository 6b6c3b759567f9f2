package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fishinglog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseInt64Param(c *gin.Context, key string) (int64, error) {
	raw := c.Param(key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return id, nil
}

// parseOptionalFloat 解析查询参数，缺省时 ok 为 false
func parseOptionalFloat(c *gin.Context, key string) (value float64, ok bool, err error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s", key)
	}
	return value, true, nil
}

var (
	notFoundErrors = []error{
		service.ErrTripNotFound,
		service.ErrWeatherLogNotFound,
		service.ErrCatchNotFound,
		service.ErrGearNotFound,
		service.ErrGearTypeNotFound,
		service.ErrPhotoNotFound,
		service.ErrPlaceNotFound,
		service.ErrForecastUnavailable,
	}
	badRequestErrors = []error{
		service.ErrTripInvalidDate,
		service.ErrCatchSpeciesRequired,
		service.ErrGearNameRequired,
		service.ErrGearTypeRequired,
		service.ErrGearTypeExists,
		service.ErrPhotoInvalid,
		service.ErrPhotoKeyInvalid,
		service.ErrArchiveInvalid,
		service.ErrSearchQueryEmpty,
	}
)

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondServiceError 把服务层的哨兵错误映射为 HTTP 状态码
func (a *API) respondServiceError(c *gin.Context, err error) {
	switch {
	case matchesAny(err, notFoundErrors):
		respondError(c, http.StatusNotFound, err.Error())
	case matchesAny(err, badRequestErrors):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUpstream):
		respondError(c, http.StatusBadGateway, "upstream service unavailable")
	case errors.Is(err, service.ErrPhotoStoreUnavailable):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	default:
		a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}
