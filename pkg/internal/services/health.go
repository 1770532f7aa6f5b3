package services

import (
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/database"
	"github.com/rs/zerolog/log"
)

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

type HealthReport struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (v HealthReport) IsHealthy() bool {
	return v.Status == HealthStatusHealthy
}

func CheckHealth() HealthReport {
	if err := database.Ping(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when pinging the poll store...")
		return HealthReport{Status: HealthStatusUnhealthy, Database: "unreachable"}
	}
	return HealthReport{Status: HealthStatusHealthy, Database: "connected"}
}
