package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"iot-telemetry-backend/internal/model"
)

type brokerProfileRequest struct {
	Name             string `json:"name" binding:"required"`
	Host             string `json:"host" binding:"required"`
	Port             int    `json:"port" binding:"required"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	ClientID         string `json:"client_id"`
	KeepAliveSeconds int    `json:"keep_alive_seconds"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	UseTLS           bool   `json:"use_tls"`
	CACertPath       string `json:"ca_cert_path"`
	CertPath         string `json:"cert_path"`
	KeyPath          string `json:"key_path"`
	WillTopic        string `json:"will_topic"`
	WillPayload      string `json:"will_payload"`
	WillQOS          int    `json:"will_qos"`
}

func (r *brokerProfileRequest) apply(p *model.BrokerProfile) {
	p.Name = r.Name
	p.Host = r.Host
	p.Port = r.Port
	p.Username = r.Username
	p.Password = r.Password
	p.ClientID = r.ClientID
	p.KeepAliveSeconds = r.KeepAliveSeconds
	p.TimeoutSeconds = r.TimeoutSeconds
	p.UseTLS = r.UseTLS
	p.CACertPath = r.CACertPath
	p.CertPath = r.CertPath
	p.KeyPath = r.KeyPath
	p.WillTopic = r.WillTopic
	p.WillPayload = r.WillPayload
	p.WillQOS = r.WillQOS
}

// ListBrokerProfiles handles GET /api/broker-profiles.
func (h *Handler) ListBrokerProfiles(c *gin.Context) {
	profiles, err := h.store.ListBrokerProfiles(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// CreateBrokerProfile handles POST /api/broker-profiles.
func (h *Handler) CreateBrokerProfile(c *gin.Context) {
	var req brokerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var profile model.BrokerProfile
	req.apply(&profile)
	if err := h.store.CreateBrokerProfile(c.Request.Context(), &profile); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// GetBrokerProfile handles GET /api/broker-profiles/:id.
func (h *Handler) GetBrokerProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	profile, err := h.store.BrokerProfile(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateBrokerProfile handles PUT /api/broker-profiles/:id. Changes to
// the active profile take effect on the next ingestion start.
func (h *Handler) UpdateBrokerProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req brokerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.store.BrokerProfile(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	req.apply(profile)
	if err := h.store.UpdateBrokerProfile(c.Request.Context(), profile); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// DeleteBrokerProfile handles DELETE /api/broker-profiles/:id.
func (h *Handler) DeleteBrokerProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteBrokerProfile(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ActivateBrokerProfile handles POST /api/broker-profiles/:id/activate.
func (h *Handler) ActivateBrokerProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store.ActivateBrokerProfile(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ActiveBrokerProfile handles GET /api/broker-profiles/active.
func (h *Handler) ActiveBrokerProfile(c *gin.Context) {
	profile, err := h.store.ActiveBrokerProfile(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type topicProfileRequest struct {
	Name            string   `json:"name" binding:"required"`
	BrokerProfileID int64    `json:"broker_profile_id" binding:"required"`
	SubscribeTopics []string `json:"subscribe_topics" binding:"required"`
	PublishTopic    string   `json:"publish_topic"`
	DataFormat      string   `json:"data_format"`
	DeviceMapping   string   `json:"device_mapping"`
}

// ListTopicProfiles handles GET /api/topic-profiles.
func (h *Handler) ListTopicProfiles(c *gin.Context) {
	profiles, err := h.store.ListTopicProfiles(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// CreateTopicProfile handles POST /api/topic-profiles. The subscribe
// list is stored serialized as a JSON array.
func (h *Handler) CreateTopicProfile(c *gin.Context) {
	var req topicProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile := model.TopicProfile{
		Name:            req.Name,
		BrokerProfileID: req.BrokerProfileID,
		SubscribeTopics: model.SerializeTopics(req.SubscribeTopics),
		PublishTopic:    req.PublishTopic,
		DataFormat:      req.DataFormat,
		DeviceMapping:   req.DeviceMapping,
	}
	if err := h.store.CreateTopicProfile(c.Request.Context(), &profile); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// GetTopicProfile handles GET /api/topic-profiles/:id.
func (h *Handler) GetTopicProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	profile, err := h.store.TopicProfile(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateTopicProfile handles PUT /api/topic-profiles/:id.
func (h *Handler) UpdateTopicProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req topicProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.store.TopicProfile(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	profile.Name = req.Name
	profile.BrokerProfileID = req.BrokerProfileID
	profile.SubscribeTopics = model.SerializeTopics(req.SubscribeTopics)
	profile.PublishTopic = req.PublishTopic
	profile.DataFormat = req.DataFormat
	profile.DeviceMapping = req.DeviceMapping

	if err := h.store.UpdateTopicProfile(c.Request.Context(), profile); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// DeleteTopicProfile handles DELETE /api/topic-profiles/:id.
func (h *Handler) DeleteTopicProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTopicProfile(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ActivateTopicProfile handles POST /api/topic-profiles/:id/activate.
func (h *Handler) ActivateTopicProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store.ActivateTopicProfile(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ActiveTopicProfile handles GET /api/topic-profiles/active.
func (h *Handler) ActiveTopicProfile(c *gin.Context) {
	profile, err := h.store.ActiveTopicProfile(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
