package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"incubator-backend/internal/models"
	"incubator-backend/internal/repository"
)

const (
	errCreateDevice   = "failed to create device"
	errListDevices    = "failed to list devices"
	errDeviceLookup   = "failed to load device"
	msgDeviceNotFound = "device not found"
)

func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createDeviceRequest struct {
	Serial          string `json:"serial" binding:"required"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version"`
	FarmID          string `json:"farm_id"`
}

func (h *Handler) createDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	device, err := h.services.Registry.Create(c.Request.Context(), models.Device{
		Serial:          req.Serial,
		Model:           req.Model,
		FirmwareVersion: req.FirmwareVersion,
		FarmID:          req.FarmID,
	})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errCreateDevice, "device_create_failed", err, "serial", req.Serial)
		return
	}
	c.JSON(http.StatusCreated, device)
}

func (h *Handler) listDevices(c *gin.Context) {
	devices, err := h.services.Registry.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListDevices, "device_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, devices)
}

func (h *Handler) getDevice(c *gin.Context) {
	ctx := c.Request.Context()
	device, err := h.services.Registry.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgDeviceNotFound})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errDeviceLookup, "device_get_failed", err, "id", c.Param("id"))
		return
	}

	resp := gin.H{"device": device}
	if latest, err := h.services.Telemetry.Latest(ctx, device.ID); err == nil {
		resp["latest_telemetry"] = latest
	}
	c.JSON(http.StatusOK, resp)
}
