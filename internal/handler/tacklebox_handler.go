package handler

import (
	"net/http"
	"strings"

	"github.com/fishinglog/internal/service"
	"github.com/gin-gonic/gin"
)

type gearPayload struct {
	Name   string `json:"name"`
	Brand  string `json:"brand"`
	Type   string `json:"type"`
	Colour string `json:"colour"`
}

type gearTypePayload struct {
	Name string `json:"name"`
}

// GetTacklebox 返回全部钓具与钓具类型
func (a *API) GetTacklebox(c *gin.Context) {
	box, err := a.tacklebox.Get(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tacklebox": box})
}

// CreateGear 新增钓具
func (a *API) CreateGear(c *gin.Context) {
	var payload gearPayload
	if !bindJSON(c, &payload, "invalid gear payload") {
		return
	}

	item, err := a.tacklebox.SaveGear(c.Request.Context(), service.GearItem{
		Name:   payload.Name,
		Brand:  payload.Brand,
		Type:   payload.Type,
		Colour: payload.Colour,
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"gear": item})
}

// UpdateGear 更新钓具
func (a *API) UpdateGear(c *gin.Context) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid gear id")
		return
	}
	var payload gearPayload
	if !bindJSON(c, &payload, "invalid gear payload") {
		return
	}

	item, err := a.tacklebox.SaveGear(c.Request.Context(), service.GearItem{
		ID:     id,
		Name:   payload.Name,
		Brand:  payload.Brand,
		Type:   payload.Type,
		Colour: payload.Colour,
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gear": item})
}

// DeleteGear 删除钓具；渔获中按名称的引用保持不变，返回引用数量供外壳提示
func (a *API) DeleteGear(c *gin.Context) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid gear id")
		return
	}
	ctx := c.Request.Context()

	gear, err := a.tacklebox.ListGear(ctx)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	name := ""
	for _, item := range gear {
		if item.ID == id {
			name = item.Name
			break
		}
	}

	if err := a.tacklebox.DeleteGear(ctx, id); err != nil {
		a.respondServiceError(c, err)
		return
	}

	usage, err := a.tacklebox.GearUsage(ctx, name)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id, "catch_references": usage})
}

// CreateGearType 新增钓具类型
func (a *API) CreateGearType(c *gin.Context) {
	var payload gearTypePayload
	if !bindJSON(c, &payload, "invalid gear type payload") {
		return
	}
	types, err := a.tacklebox.AddType(c.Request.Context(), payload.Name)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"types": types})
}

// RenameGearType 重命名类型，同类钓具随之改名
func (a *API) RenameGearType(c *gin.Context) {
	oldName := strings.TrimSpace(c.Param("name"))
	var payload gearTypePayload
	if !bindJSON(c, &payload, "invalid gear type payload") {
		return
	}
	types, err := a.tacklebox.RenameType(c.Request.Context(), oldName, payload.Name)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}

// DeleteGearType 删除类型及其下的所有钓具
func (a *API) DeleteGearType(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	removed, err := a.tacklebox.DeleteType(c.Request.Context(), name)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "name": name, "removed_gear": removed})
}
