package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

// FeatureList is a plan's feature keys (mod_/perm_ prefixed), stored as jsonb.
type FeatureList []string

func (l FeatureList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *FeatureList) Scan(src interface{}) error {
	if src == nil {
		*l = FeatureList{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported feature list source type %T", src)
	}
	if len(data) == 0 {
		*l = FeatureList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

type Plan struct {
	Base
	Name       string      `db:"name" json:"name"`
	NameAr     string      `db:"name_ar" json:"name_ar"`
	Features   FeatureList `db:"features" json:"features"`
	IsFree     bool        `db:"is_free" json:"is_free"`
	PriceCents int64       `db:"price_cents" json:"price_cents"`
	Interval   string      `db:"interval" json:"interval"`
}

type Subscription struct {
	Base
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	PlanID           uuid.UUID  `db:"plan_id" json:"plan_id"`
	Status           string     `db:"status" json:"status"`
	CurrentPeriodEnd *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`

	Plan *Plan `db:"-" json:"plan,omitempty"`
}

// IsActive reports whether the subscription currently grants its plan features.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == string(SubscriptionStatusActive)
}
