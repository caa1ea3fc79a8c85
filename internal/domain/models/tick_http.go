package models

import "time"

// Requests for the tick inspection HTTP endpoints.

type DueRequest struct {
	At string `query:"at" json:"at" validate:"required"`
}

type RunCycleRequest struct {
	At string `json:"at" validate:"required"`
}

type BatchRequest struct {
	At string `param:"at" validate:"required"`
}

type ReloadResponse struct {
	Strategies int `json:"strategies"`
	Enabled    int `json:"enabled"`
}

type DueResponse struct {
	At         time.Time      `json:"at"`
	Strategies []StrategySpec `json:"strategies"`
}

type RegistryResponse struct {
	LoadedAt   time.Time      `json:"loaded_at"`
	Enabled    int            `json:"enabled"`
	Strategies []StrategySpec `json:"strategies"`
}
