package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxPasteSize = 1024 * 1024
	IDLength     = 8
	saveAttempts = 3
)

var lifetimes = map[string]time.Duration{
	"10m": 10 * time.Minute,
	"20m": 20 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"1d":  24 * time.Hour,
}

type CreatePasteRequest struct {
	Content   string `json:"content" binding:"required"`
	ExpiresIn string `json:"expires_in"`
	Syntax    string `json:"syntax"`
}

type CreatePasteResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type API struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewAPI(store Store, log *logrus.Logger) *API {
	return &API{store: store, log: log, now: time.Now}
}

func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", a.health)

	v1 := router.Group("/api/v1")
	v1.POST("/paste", a.createPaste)
	v1.GET("/paste/:id", a.getPaste)
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:IDLength]
}

func (a *API) createPaste(c *gin.Context) {
	var req CreatePasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}
	if len(req.Content) > MaxPasteSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "paste content exceeds the maximum allowed size of 1MB"})
		return
	}
	lifetime, ok := lifetimes[req.ExpiresIn]
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid value for expires_in. valid options are: 10m, 20m, 30m, 1h, 1d"})
		return
	}
	if req.Syntax == "" {
		req.Syntax = "text"
	}

	now := a.now()
	p := &Paste{
		Content:   req.Content,
		Syntax:    req.Syntax,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
	var err error
	for i := 0; i < saveAttempts; i++ {
		p.ID = newID()
		if err = a.store.Save(c.Request.Context(), p); !errors.Is(err, ErrExists) {
			break
		}
	}
	if err != nil {
		a.log.WithError(err).Error("failed to save paste")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to save paste"})
		return
	}

	c.JSON(http.StatusCreated, CreatePasteResponse{ID: p.ID, URL: "/p/" + p.ID})
}

func (a *API) getPaste(c *gin.Context) {
	p, err := a.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "paste not found"})
		return
	}
	if err != nil {
		a.log.WithError(err).WithField("id", c.Param("id")).Error("failed to get paste")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "storage error"})
		return
	}
	c.JSON(http.StatusOK, p)
}
