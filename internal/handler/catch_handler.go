package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/fishinglog/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxPhotoUpload 限制单张照片上传的大小
const maxPhotoUpload = 16 << 20

type catchPayload struct {
	Species     string   `json:"species" form:"species"`
	Gear        []string `json:"gear" form:"gear"`
	Length      string   `json:"length" form:"length"`
	Weight      string   `json:"weight" form:"weight"`
	Time        string   `json:"time" form:"time"`
	Details     string   `json:"details" form:"details"`
	RemovePhoto bool     `json:"removePhoto" form:"removePhoto"`
}

func (p catchPayload) toInput() service.CatchInput {
	return service.CatchInput{
		Species: p.Species,
		Gear:    p.Gear,
		Length:  p.Length,
		Weight:  p.Weight,
		Time:    p.Time,
		Details: p.Details,
	}
}

// parseCatchRequest 同时支持 JSON 与带 photo 文件的 multipart 表单
func parseCatchRequest(c *gin.Context) (catchPayload, []byte, error) {
	var payload catchPayload
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&payload); err != nil {
			return payload, nil, errors.New("invalid catch payload")
		}
		return payload, nil, nil
	}

	if err := c.ShouldBind(&payload); err != nil {
		return payload, nil, errors.New("invalid catch form")
	}
	// 表单里的 gear 也可能是逗号分隔的一项
	if len(payload.Gear) == 1 && strings.Contains(payload.Gear[0], ",") {
		payload.Gear = strings.Split(payload.Gear[0], ",")
	}

	header, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return payload, nil, nil
	}
	if err != nil {
		return payload, nil, fmt.Errorf("invalid photo upload")
	}
	if header.Size > maxPhotoUpload {
		return payload, nil, fmt.Errorf("photo exceeds %d MB", maxPhotoUpload>>20)
	}
	file, err := header.Open()
	if err != nil {
		return payload, nil, fmt.Errorf("invalid photo upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoUpload+1))
	if err != nil {
		return payload, nil, fmt.Errorf("read photo: %w", err)
	}
	return payload, data, nil
}

// ListTripCatches 列出出钓记录下的渔获
func (a *API) ListTripCatches(c *gin.Context) {
	tripID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	if _, err := a.trips.Get(tripID); err != nil {
		a.respondServiceError(c, err)
		return
	}

	catches, err := a.catches.ListByTrip(tripID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"catches": catches})
}

// CreateCatch 为出钓记录添加渔获，可附带照片
func (a *API) CreateCatch(c *gin.Context) {
	tripID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	payload, photo, err := parseCatchRequest(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	catch, err := a.catches.Create(c.Request.Context(), tripID, payload.toInput(), photo)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"catch": catch})
}

// GetCatch 返回单条渔获
func (a *API) GetCatch(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid catch id")
		return
	}
	catch, err := a.catches.Get(id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"catch": catch})
}

// UpdateCatch 更新渔获；上传新照片会替换旧照片，removePhoto 会删除照片
func (a *API) UpdateCatch(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid catch id")
		return
	}
	payload, photo, err := parseCatchRequest(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	catch, err := a.catches.Update(ctx, id, payload.toInput(), photo)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	if payload.RemovePhoto && photo == nil && catch.Photo != "" {
		if catch, err = a.catches.RemovePhoto(ctx, id); err != nil {
			a.respondServiceError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"catch": catch})
}

// DeleteCatch 删除渔获及其照片
func (a *API) DeleteCatch(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid catch id")
		return
	}
	if err := a.catches.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

// GetCatchPhoto 输出渔获照片
func (a *API) GetCatchPhoto(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid catch id")
		return
	}

	rc, err := a.catches.OpenPhoto(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		a.logger.Error("read catch photo failed", zap.Uint("catch_id", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.Header("Cache-Control", "private, max-age=86400")
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}
