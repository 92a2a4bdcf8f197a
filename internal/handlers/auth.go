package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/middleware"
	"github.com/yourorg/kharkivmetro/internal/models"
	"github.com/yourorg/kharkivmetro/internal/refresh"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
	"github.com/yourorg/kharkivmetro/internal/validation"
)

// Refresher runs the scrape pipeline.
type Refresher interface {
	Run(ctx context.Context) (*refresh.Report, error)
}

// AdminHandler serves login and the data maintenance endpoints.
type AdminHandler struct {
	cfg       config.AdminConfig
	secret    []byte
	manager   *snapshot.Manager
	source    snapshot.Source
	refresher Refresher
}

// NewAdminHandler creates the handler. source is what reload reads from;
// refresher may be nil when scraping is not available.
func NewAdminHandler(cfg config.AdminConfig, secret []byte, manager *snapshot.Manager, source snapshot.Source, refresher Refresher) *AdminHandler {
	return &AdminHandler{cfg: cfg, secret: secret, manager: manager, source: source, refresher: refresher}
}

// Login checks the admin password and issues a token.
// POST /api/admin/login
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	if h.cfg.PasswordHash == "" {
		return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{Error: "admin login disabled"})
	}
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	if err := validation.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "username and password required", Message: err.Error()})
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		log.Printf("⚠️ [ADMIN] Failed login for %q from %s", req.Username, c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid credentials"})
	}

	token, expiresAt, err := middleware.IssueToken(h.secret, h.cfg.Username, h.cfg.TokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to sign token"})
	}
	c.Set("Cache-Control", "no-store")
	return c.JSON(models.LoginResponse{Token: token, Username: h.cfg.Username, ExpiresAt: expiresAt})
}

// Reload rebuilds the snapshot from storage.
// POST /api/admin/reload
func (h *AdminHandler) Reload(c *fiber.Ctx) error {
	start := time.Now()
	snap, err := h.manager.Refresh(c.UserContext(), h.source)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "reload failed", Message: err.Error()})
	}
	return c.JSON(models.RefreshResponse{Snapshot: SnapshotInfo(snap), DurationMS: time.Since(start).Milliseconds()})
}

// Refresh scrapes the operator's timetables, stores them and reloads.
// POST /api/admin/refresh
func (h *AdminHandler) Refresh(c *fiber.Ctx) error {
	if h.refresher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{Error: "scraper not configured"})
	}
	report, err := h.refresher.Run(c.UserContext())
	if err != nil {
		status := fiber.StatusBadGateway
		if errors.Is(err, refresh.ErrNoDepartures) || metro.IsDataIntegrity(err) {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(models.ErrorResponse{Error: "refresh failed", Message: err.Error()})
	}
	return c.JSON(models.RefreshResponse{
		Snapshot:   SnapshotInfo(report.Snapshot),
		Pages:      report.Pages,
		Failed:     len(report.Failed),
		Rows:       report.Rows,
		DurationMS: report.Duration.Milliseconds(),
	})
}
