// Package agents handles registration, bearer-token issuance, and
// heartbeats for automated collaborators, using the same JWT
// claims/signing shape as a password-based auth service but dropping the
// password/API-key half entirely: an agent authenticates by registering
// and receiving a token, there is no login form and nothing to hash.
package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fabcore/mescontrol/internal/apierr"
	"github.com/fabcore/mescontrol/internal/clock"
	"github.com/fabcore/mescontrol/internal/models"
	"github.com/fabcore/mescontrol/internal/repository"
)

var ErrInvalidToken = errors.New("invalid or expired agent token")

// Claims is the JWT payload minted for a registered agent.
type Claims struct {
	AgentID string          `json:"agent_id"`
	Kind    models.AgentKind `json:"kind"`
	jwt.RegisteredClaims
}

// Service issues and verifies agent tokens and tracks heartbeats.
type Service struct {
	repo      repository.Repository
	clock     clock.Clock
	jwtSecret string
	ttl       time.Duration
}

func New(repo repository.Repository, clk clock.Clock, jwtSecret string) *Service {
	return &Service{repo: repo, clock: clk, jwtSecret: jwtSecret, ttl: 24 * time.Hour}
}

// Register creates an Agent row and mints its bearer token.
func (s *Service) Register(ctx context.Context, kind models.AgentKind, equipmentID *uuid.UUID, capabilities []string) (*models.Agent, string, error) {
	now := s.clock.Now()
	agent := &models.Agent{
		ID:            uuid.New(),
		Kind:          kind,
		EquipmentID:   equipmentID,
		Status:        models.AgentActive,
		LastHeartbeat: now,
		Capabilities:  capabilities,
		CreatedAt:     now,
	}
	if err := s.repo.CreateAgent(ctx, agent); err != nil {
		return nil, "", apierr.Unavailable(fmt.Errorf("agents: create agent: %w", err))
	}

	token, err := s.mint(agent, now)
	if err != nil {
		return nil, "", apierr.Internal("", fmt.Errorf("agents: mint token: %w", err))
	}
	return agent, token, nil
}

func (s *Service) mint(agent *models.Agent, now time.Time) (string, error) {
	claims := &Claims{
		AgentID: agent.ID.String(),
		Kind:    agent.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// Verify parses and validates a bearer token, stripping the "Bearer "
// prefix if present, and returns the claims it carries.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Heartbeat updates an agent's last_heartbeat and marks it active.
func (s *Service) Heartbeat(ctx context.Context, agentID uuid.UUID) (*models.Agent, error) {
	agent, err := s.repo.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	agent.LastHeartbeat = s.clock.Now()
	agent.Status = models.AgentActive
	if err := s.repo.UpdateAgent(ctx, agent); err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("agents: heartbeat: %w", err))
	}
	return agent, nil
}

// MarkInactiveStale flips any agent whose last heartbeat is older than
// staleAfter to inactive.
func (s *Service) MarkInactiveStale(ctx context.Context, staleAfter time.Duration) error {
	agents, err := s.repo.ListAgents(ctx)
	if err != nil {
		return apierr.Unavailable(fmt.Errorf("agents: list agents: %w", err))
	}
	now := s.clock.Now()
	for _, a := range agents {
		if a.Status == models.AgentActive && now.Sub(a.LastHeartbeat) > staleAfter {
			a.Status = models.AgentInactive
			if err := s.repo.UpdateAgent(ctx, a); err != nil {
				return apierr.Unavailable(fmt.Errorf("agents: mark inactive %s: %w", a.ID, err))
			}
		}
	}
	return nil
}
