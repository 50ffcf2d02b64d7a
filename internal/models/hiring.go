package models

import "time"

// HiringStatus is the lifecycle of a hiring request.
type HiringStatus string

const (
	HiringPending  HiringStatus = "pendiente"
	HiringApproved HiringStatus = "aprobada"
	HiringRejected HiringStatus = "rechazada"
)

// Hiring ("contratación") is a customer's request to subscribe to a plan.
type Hiring struct {
	ID            string       `json:"id,omitempty"`
	UserID        string       `json:"usuario_id"`
	PlanID        string       `json:"plan_id"`
	Status        HiringStatus `json:"estado"`
	RequestedAt   *time.Time   `json:"fecha_solicitud,omitempty"`
	RespondedAt   *time.Time   `json:"fecha_respuesta,omitempty"`
	AdvisorID     string       `json:"asesor_id,omitempty"`
	CustomerNotes string       `json:"notas_usuario,omitempty"`
	AdvisorNotes  string       `json:"notas_asesor,omitempty"`

	// Loaded through embedded selects.
	Plan     *Plan        `json:"plan,omitempty"`
	Customer *HiringParty `json:"usuario,omitempty"`
}

// HiringParty is the subset of a profile embedded in hiring listings.
type HiringParty struct {
	Email       string `json:"email"`
	DisplayName string `json:"nombre,omitempty"`
}
