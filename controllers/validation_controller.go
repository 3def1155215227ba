package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/likexian/whois"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mailgate/config"
	"mailgate/models"
	"mailgate/utils"
	"mailgate/verify"
)

// ValidationController exposes the validation pipeline over HTTP. All
// collaborators are injected so tests can run isolated instances.
type ValidationController struct {
	Cfg     *config.Config
	Service *verify.Service
	Mailer  *utils.Mailer
	DB      *gorm.DB
	Logger  *logrus.Logger
}

func NewValidationController(cfg *config.Config, service *verify.Service, mailer *utils.Mailer, db *gorm.DB, logger *logrus.Logger) *ValidationController {
	return &ValidationController{
		Cfg:     cfg,
		Service: service,
		Mailer:  mailer,
		DB:      db,
		Logger:  logger,
	}
}

type emailRequest struct {
	Email string `json:"email"`
}

type sendMessageRequest struct {
	Email   string `json:"email" validate:"required"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Precheck runs the free local+DNS validation stages. Costs nothing.
func (vc *ValidationController) Precheck(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"precheck": "fail",
			"reason":   "Invalid input",
		})
	}

	result := vc.Service.Precheck(c.UserContext(), req.Email)
	if !result.Pass {
		return c.JSON(fiber.Map{"precheck": "fail", "reason": result.Reason})
	}

	resp := fiber.Map{"precheck": "pass"}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	return c.JSON(resp)
}

// Verify runs the paid provider check. Gated on a passing precheck and on the
// stricter rate-limit window.
func (vc *ValidationController) Verify(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email required"})
	}

	start := time.Now()
	result, err := vc.Service.Verify(c.UserContext(), req.Email, c.IP())
	if err != nil {
		if errors.Is(err, verify.ErrPrecheckRequired) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Precheck not passed. Call /precheck first.",
			})
		}
		utils.ReportError("provider_unavailable", err, map[string]interface{}{
			"email_hash": verify.EmailHash(verify.Normalize(req.Email)),
		})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Verification service unavailable",
		})
	}

	normalized := verify.Normalize(req.Email)
	vc.recordVerification(&models.VerificationEvent{
		EmailHash:  verify.EmailHash(normalized),
		Domain:     verify.ExtractDomain(normalized),
		Provider:   vc.Service.ProviderName(),
		Status:     result.Status,
		Source:     result.Source,
		DurationMs: time.Since(start).Milliseconds(),
	})

	resp := fiber.Map{
		"status": result.Status,
		"raw":    result.Raw,
		"source": result.Source,
	}
	if vc.Cfg.WhoisEnrichment {
		if info, err := whois.Whois(verify.ExtractDomain(normalized)); err == nil {
			resp["whois"] = info
		}
	}
	return c.JSON(resp)
}

// SendMessage is the final gate: it dispatches the contact message only when a
// cached verification with status "valid" exists. It never triggers a new
// provider call.
func (vc *ValidationController) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":     false,
			"reason": "Invalid request format",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":     false,
			"reason": err.Error(),
		})
	}

	hash := verify.EmailHash(verify.Normalize(req.Email))

	allowed, reason := vc.Service.GateSend(req.Email)
	if !allowed {
		vc.recordMessage(hash, false, reason)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"ok": false, "reason": reason})
	}

	if vc.Mailer != nil {
		if err := vc.Mailer.SendContactMessage(verify.Normalize(req.Email), req.Message); err != nil {
			utils.ReportError("send_failed", err, map[string]interface{}{"email_hash": hash})
			vc.recordMessage(hash, false, "delivery failed")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"ok":     false,
				"reason": "Message could not be delivered",
			})
		}
	} else {
		vc.Logger.WithField("email_hash", hash).Info("mailer not configured, message accepted without dispatch")
	}

	vc.recordMessage(hash, true, "")
	return c.JSON(fiber.Map{"ok": true})
}

// Metrics reports cache counters and provider-call count since process start.
func (vc *ValidationController) Metrics(c *fiber.Ctx) error {
	return c.JSON(vc.Service.Metrics())
}

func (vc *ValidationController) recordVerification(event *models.VerificationEvent) {
	if vc.DB == nil {
		return
	}
	if err := vc.DB.Create(event).Error; err != nil {
		vc.Logger.WithError(err).Warn("failed to record verification event")
	}
}

func (vc *ValidationController) recordMessage(emailHash string, accepted bool, reason string) {
	if vc.DB == nil {
		return
	}
	msg := models.ContactMessage{EmailHash: emailHash, Accepted: accepted, Reason: reason}
	if err := vc.DB.Create(&msg).Error; err != nil {
		vc.Logger.WithError(err).Warn("failed to record contact message")
	}
}
