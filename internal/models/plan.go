package models

import "time"

// Plan is one mobile plan of the catalog.
type Plan struct {
	ID                 string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name               string     `json:"nombre" yaml:"nombre"`
	Price              float64    `json:"precio" yaml:"precio"`
	DataGB             string     `json:"datos_gb,omitempty" yaml:"datos_gb,omitempty"`
	VoiceMinutes       string     `json:"minutos_voz,omitempty" yaml:"minutos_voz,omitempty"`
	SMS                string     `json:"sms,omitempty" yaml:"sms,omitempty"`
	Speed4G            string     `json:"velocidad_4g,omitempty" yaml:"velocidad_4g,omitempty"`
	Speed5G            string     `json:"velocidad_5g,omitempty" yaml:"velocidad_5g,omitempty"`
	SocialNetworks     string     `json:"redes_sociales,omitempty" yaml:"redes_sociales,omitempty"`
	WhatsApp           string     `json:"whatsapp,omitempty" yaml:"whatsapp,omitempty"`
	InternationalCalls string     `json:"llamadas_internacionales,omitempty" yaml:"llamadas_internacionales,omitempty"`
	Roaming            string     `json:"roaming,omitempty" yaml:"roaming,omitempty"`
	Segment            string     `json:"segmento,omitempty" yaml:"segmento,omitempty"`
	TargetAudience     string     `json:"publico_objetivo,omitempty" yaml:"publico_objetivo,omitempty"`
	ImageURL           string     `json:"imagen_url,omitempty" yaml:"imagen_url,omitempty"`
	Active             bool       `json:"activo" yaml:"activo"`
	AdvisorID          string     `json:"asesor_id,omitempty" yaml:"asesor_id,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// PlanPatch is a partial update; nil fields are not sent.
type PlanPatch struct {
	Name               *string  `json:"nombre,omitempty" yaml:"nombre,omitempty"`
	Price              *float64 `json:"precio,omitempty" yaml:"precio,omitempty"`
	DataGB             *string  `json:"datos_gb,omitempty" yaml:"datos_gb,omitempty"`
	VoiceMinutes       *string  `json:"minutos_voz,omitempty" yaml:"minutos_voz,omitempty"`
	SMS                *string  `json:"sms,omitempty" yaml:"sms,omitempty"`
	Speed4G            *string  `json:"velocidad_4g,omitempty" yaml:"velocidad_4g,omitempty"`
	Speed5G            *string  `json:"velocidad_5g,omitempty" yaml:"velocidad_5g,omitempty"`
	SocialNetworks     *string  `json:"redes_sociales,omitempty" yaml:"redes_sociales,omitempty"`
	WhatsApp           *string  `json:"whatsapp,omitempty" yaml:"whatsapp,omitempty"`
	InternationalCalls *string  `json:"llamadas_internacionales,omitempty" yaml:"llamadas_internacionales,omitempty"`
	Roaming            *string  `json:"roaming,omitempty" yaml:"roaming,omitempty"`
	Segment            *string  `json:"segmento,omitempty" yaml:"segmento,omitempty"`
	TargetAudience     *string  `json:"publico_objetivo,omitempty" yaml:"publico_objetivo,omitempty"`
	ImageURL           *string  `json:"imagen_url,omitempty" yaml:"imagen_url,omitempty"`
	Active             *bool    `json:"activo,omitempty" yaml:"activo,omitempty"`
}
