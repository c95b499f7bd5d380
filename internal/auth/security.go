// Package auth implements signup, login, session management, and brute
// force protection for the riverlog service.
package auth

import (
	"context"
	"log/slog"
	"time"

	"riverlog/internal/types"
)

// SecurityConfig holds the tunable thresholds for brute force protection.
type SecurityConfig struct {
	// IPBlockThreshold is the number of failed attempts from an IP within
	// the window before the IP is blocked. Default: 100.
	IPBlockThreshold int

	// IdentifierBlockThreshold is the number of failed login attempts for
	// a specific username or email within the window before that account
	// is locked out. Default: 10.
	IdentifierBlockThreshold int

	// WindowDuration is the time window for counting recent failures.
	// Default: 15 minutes.
	WindowDuration time.Duration
}

// DefaultSecurityConfig returns the default security configuration.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		IPBlockThreshold:         100,
		IdentifierBlockThreshold: 10,
		WindowDuration:           15 * time.Minute,
	}
}

// SecurityRepo defines the data access methods needed by the SecurityService.
type SecurityRepo interface {
	LogAttempt(ctx context.Context, event *types.SecurityEvent) error
	CountRecentFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error)
	CountRecentFailuresByIdentifier(ctx context.Context, identifier string, since time.Time) (int, error)
}

// securityService implements types.SecurityService using the SecurityRepository
// for persistence and configurable thresholds for blocking decisions.
type securityService struct {
	repo   SecurityRepo
	config SecurityConfig
	clock  types.Clock
	logger *slog.Logger
}

// NewSecurityService creates a new SecurityService implementation.
func NewSecurityService(repo SecurityRepo, config SecurityConfig, clock types.Clock, logger *slog.Logger) types.SecurityService {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &securityService{
		repo:   repo,
		config: config,
		clock:  clock,
		logger: logger,
	}
}

// RecordAttempt logs a security event for tracking. Called by the auth
// service on both successful and failed authentication attempts.
func (s *securityService) RecordAttempt(ctx context.Context, eventType string, identifier string, ip string, success bool, reason string) error {
	event := &types.SecurityEvent{
		EventType:     eventType,
		Identifier:    identifier,
		IPAddress:     ip,
		AttemptedAt:   s.clock.Now(),
		Success:       success,
		FailureReason: reason,
	}

	if err := s.repo.LogAttempt(ctx, event); err != nil {
		s.logger.Error("failed to record security attempt",
			"event_type", eventType,
			"identifier", identifier,
			"ip", ip,
			"error", err,
		)
		return err
	}
	return nil
}

// IsIPBlocked checks if an IP address should be blocked based on recent
// failed attempts across all event types.
func (s *securityService) IsIPBlocked(ctx context.Context, ip string) bool {
	since := s.clock.Now().Add(-s.config.WindowDuration)
	count, err := s.repo.CountRecentFailuresByIP(ctx, ip, since)
	if err != nil {
		// On error, log and fail open so a database issue cannot lock
		// everyone out.
		s.logger.Error("failed to check IP block status",
			"ip", ip,
			"error", err,
		)
		return false
	}
	return count >= s.config.IPBlockThreshold
}

// IsIdentifierBlocked checks if a specific identifier (username or email)
// should be blocked based on recent failed login attempts.
func (s *securityService) IsIdentifierBlocked(ctx context.Context, identifier string) bool {
	since := s.clock.Now().Add(-s.config.WindowDuration)
	count, err := s.repo.CountRecentFailuresByIdentifier(ctx, identifier, since)
	if err != nil {
		// Fail open on error, same rationale as IsIPBlocked.
		s.logger.Error("failed to check identifier block status",
			"identifier", identifier,
			"error", err,
		)
		return false
	}
	return count >= s.config.IdentifierBlockThreshold
}

// BruteForceProtector composes the SecurityService into a higher-level API
// for the auth service.
type BruteForceProtector struct {
	security types.SecurityService
}

// NewBruteForceProtector creates a new BruteForceProtector wrapping the
// given SecurityService.
func NewBruteForceProtector(security types.SecurityService) *BruteForceProtector {
	return &BruteForceProtector{security: security}
}

// CheckLoginAllowed verifies that neither the identifier nor the IP is
// currently blocked. Returns true if login may proceed.
func (b *BruteForceProtector) CheckLoginAllowed(ctx context.Context, identifier, ip string) (bool, error) {
	if b.security.IsIdentifierBlocked(ctx, identifier) {
		return false, nil
	}
	if b.security.IsIPBlocked(ctx, ip) {
		return false, nil
	}
	return true, nil
}

// RecordAttempt delegates to the underlying SecurityService to record a
// login attempt for brute force tracking.
func (b *BruteForceProtector) RecordAttempt(ctx context.Context, identifier, ip string, success bool) error {
	reason := ""
	if !success {
		reason = "invalid_creds"
	}
	return b.security.RecordAttempt(ctx, "login", identifier, ip, success, reason)
}
