package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ehsas/internal/alumni"
	"ehsas/internal/auth"
	"ehsas/internal/cloudinary"
	"ehsas/internal/config"
	"ehsas/internal/events"
	"ehsas/internal/metrics"
	"ehsas/internal/notify"
	"ehsas/internal/spotlight"
)

type api struct {
	cfg       config.App
	sessions  *auth.Manager
	alumni    *alumni.Service
	notifs    *notify.Repository
	events    *events.Repository
	spotlight *spotlight.Repository
	images    *cloudinary.Client
	metrics   *metrics.Metrics
}

func (a *api) registerRoutes(r *gin.Engine) {
	pub := r.Group("/api")

	pub.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "EHSAS API - Elden Heights School Alumni Society"})
	})

	pub.POST("/auth/admin/login", a.login)
	pub.POST("/alumni/register", a.register)
	pub.GET("/alumni", a.directory)
	pub.GET("/events", a.listEvents)
	pub.GET("/spotlight", a.listSpotlight)

	adm := r.Group("/api", auth.AdminAuth(a.cfg.JWTSigningKey, a.cfg.JWTIssuer))

	adm.GET("/admin/stats", a.stats)
	adm.GET("/admin/notifications", a.listNotifications)
	adm.GET("/admin/notifications/unread", a.unreadNotifications)
	adm.PUT("/admin/notifications/:id/read", a.markNotificationRead)
	adm.POST("/admin/upload", a.upload)

	adm.GET("/alumni/pending", a.pendingAlumni)
	adm.GET("/alumni/all", a.allAlumni)
	adm.PUT("/alumni/:id/approve", a.approve)
	adm.PUT("/alumni/:id/reject", a.reject)

	adm.POST("/events", a.createEvent)
	adm.PUT("/events/:id", a.updateEvent)
	adm.DELETE("/events/:id", a.deleteEvent)

	adm.POST("/spotlight", a.createSpotlight)
	adm.PUT("/spotlight/:id", a.updateSpotlight)
	adm.DELETE("/spotlight/:id", a.deleteSpotlight)
}

func (a *api) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	session, err := a.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.metrics.IncLogins()

	c.JSON(http.StatusOK, gin.H{
		"id":    session.AdminID,
		"email": session.Email,
		"role":  session.Role,
		"token": session.Token,
	})
}

func (a *api) register(c *gin.Context) {
	var reg alumni.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := a.alumni.Register(c.Request.Context(), reg)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration submitted successfully. You will receive confirmation once approved.",
		"id":      rec.ID,
	})
}

func (a *api) directory(c *gin.Context) {
	var f alumni.Filter
	if v := c.Query("batch"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Batch = parsed
		}
	}
	f.Profession = c.Query("profession")
	f.City = c.Query("city")

	records, err := a.alumni.Directory(c.Request.Context(), f)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (a *api) pendingAlumni(c *gin.Context) {
	records, err := a.alumni.Pending(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (a *api) allAlumni(c *gin.Context) {
	records, err := a.alumni.All(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (a *api) approve(c *gin.Context) {
	rec, err := a.alumni.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Alumni approved with EHSAS ID: %s", *rec.EhsasID),
		"ehsas_id": *rec.EhsasID,
	})
}

func (a *api) reject(c *gin.Context) {
	if _, err := a.alumni.Reject(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alumni registration rejected"})
}

func (a *api) stats(c *gin.Context) {
	stats, err := a.alumni.Stats(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	totalEvents, err := a.events.CountActive(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_alumni":          stats.TotalAlumni,
		"pending_registrations": stats.PendingRegistrations,
		"total_events":          totalEvents,
		"batch_distribution":    stats.BatchDistribution,
	})
}

func (a *api) listNotifications(c *gin.Context) {
	entries, err := a.notifs.List(c.Request.Context(), 50)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (a *api) unreadNotifications(c *gin.Context) {
	n, err := a.notifs.UnreadCount(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

func (a *api) markNotificationRead(c *gin.Context) {
	if err := a.notifs.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (a *api) listEvents(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") != "false"
	list, err := a.events.List(c.Request.Context(), activeOnly)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *api) createEvent(c *gin.Context) {
	var in events.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	evt, err := a.events.Create(c.Request.Context(), in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, evt)
}

func (a *api) updateEvent(c *gin.Context) {
	var in events.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.events.Update(c.Request.Context(), c.Param("id"), in); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event updated"})
}

func (a *api) deleteEvent(c *gin.Context) {
	if err := a.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

func (a *api) listSpotlight(c *gin.Context) {
	list, err := a.spotlight.List(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *api) createSpotlight(c *gin.Context) {
	var in spotlight.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := a.spotlight.Create(c.Request.Context(), in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (a *api) updateSpotlight(c *gin.Context) {
	var in spotlight.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.spotlight.Update(c.Request.Context(), c.Param("id"), in); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Spotlight alumni updated"})
}

func (a *api) deleteSpotlight(c *gin.Context) {
	if err := a.spotlight.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Spotlight alumni deleted"})
}

// upload pushes a base64 data URL or multipart file to Cloudinary and
// returns the public URL for use in event/spotlight image fields.
func (a *api) upload(c *gin.Context) {
	if a.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}

	var result *cloudinary.UploadResult
	var err error

	switch {
	case strings.Contains(c.ContentType(), "multipart/form-data"):
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = a.images.UploadBytes(data, header.Filename)

	default:
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		result, err = a.images.UploadBase64(body.Data)
	}

	if err != nil {
		logrus.WithError(err).Warn("cloudinary upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "public_id": result.PublicID})
}

// writeError maps domain errors onto HTTP statuses. Transient backend
// failures surface as 500 so clients can distinguish them from domain
// rejections.
func (a *api) writeError(c *gin.Context, err error) {
	var vErr *alumni.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": vErr.Fields})
	case errors.Is(err, alumni.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
	case errors.Is(err, alumni.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "record is not pending review"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, alumni.ErrNotFound),
		errors.Is(err, notify.ErrNotFound),
		errors.Is(err, events.ErrNotFound),
		errors.Is(err, spotlight.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
