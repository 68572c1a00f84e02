package models

import (
	"encoding/json"
	"time"
)

type IdempotencyStatus string

const (
	IdemPending   IdempotencyStatus = "PENDING"
	IdemCompleted IdempotencyStatus = "COMPLETED"
)

type IdempotencyRecord struct {
	Scope       string            `json:"scope"`
	Key         string            `json:"key"`
	Fingerprint string            `json:"fingerprint"`
	Status      IdempotencyStatus `json:"status"`
	Response    json.RawMessage   `json:"response,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
