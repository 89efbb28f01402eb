package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"iot-telemetry-backend/internal/model"
)

// ListDevices handles GET /api/devices.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}

type deviceRequest struct {
	Name            string `json:"name" binding:"required"`
	DeviceType      string `json:"device_type"`
	Status          string `json:"status"`
	Location        string `json:"location"`
	BrokerProfileID *int64 `json:"broker_profile_id"`
	TopicProfileID  *int64 `json:"topic_profile_id"`
}

// CreateDevice handles POST /api/devices.
func (h *Handler) CreateDevice(c *gin.Context) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := model.Device{
		Name:            req.Name,
		DeviceType:      req.DeviceType,
		Status:          req.Status,
		Location:        req.Location,
		BrokerProfileID: req.BrokerProfileID,
		TopicProfileID:  req.TopicProfileID,
	}
	if device.Status == "" {
		device.Status = model.StatusOffline
	}
	if err := h.store.CreateDevice(c.Request.Context(), &device); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, device)
}

// GetDevice handles GET /api/devices/:id.
func (h *Handler) GetDevice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	device, err := h.store.Device(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// UpdateDevice handles PUT /api/devices/:id.
func (h *Handler) UpdateDevice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.store.Device(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	device.Name = req.Name
	device.DeviceType = req.DeviceType
	if req.Status != "" {
		device.Status = req.Status
	}
	device.Location = req.Location
	device.BrokerProfileID = req.BrokerProfileID
	device.TopicProfileID = req.TopicProfileID

	if err := h.store.UpdateDevice(c.Request.Context(), device); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// DeleteDevice handles DELETE /api/devices/:id. Readings go with the
// device.
func (h *Handler) DeleteDevice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteDevice(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeviceReadings handles GET /api/devices/:id/readings, the latest value
// of every metric the device has reported.
func (h *Handler) DeviceReadings(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.store.Device(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	readings, err := h.store.ReadingsForDevice(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}
