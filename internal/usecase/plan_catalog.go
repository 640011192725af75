package usecase

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSubscriptionPlanID = "pro-monthly"
	DefaultCreditPlanID       = "resume-credits-5"
)

// PlanCatalog maps provider price ids to local plan ids.
type PlanCatalog struct {
	prices                  map[string]string
	defaultSubscriptionPlan string
	defaultCreditPlan       string
}

// PlanCatalogFile is the YAML layout of configs/plans.yaml.
type PlanCatalogFile struct {
	DefaultSubscriptionPlan string         `yaml:"default_subscription_plan"`
	DefaultCreditPlan       string         `yaml:"default_credit_plan"`
	Prices                  []PriceMapping `yaml:"prices"`
}

type PriceMapping struct {
	PriceID string `yaml:"price_id"`
	PlanID  string `yaml:"plan_id"`
}

// NewPlanCatalog builds a catalog. Empty defaults fall back to the built-in plan ids.
func NewPlanCatalog(file PlanCatalogFile) (*PlanCatalog, error) {
	c := &PlanCatalog{
		prices:                  make(map[string]string, len(file.Prices)),
		defaultSubscriptionPlan: file.DefaultSubscriptionPlan,
		defaultCreditPlan:       file.DefaultCreditPlan,
	}
	if c.defaultSubscriptionPlan == "" {
		c.defaultSubscriptionPlan = DefaultSubscriptionPlanID
	}
	if c.defaultCreditPlan == "" {
		c.defaultCreditPlan = DefaultCreditPlanID
	}

	for _, m := range file.Prices {
		if m.PriceID == "" || m.PlanID == "" {
			return nil, fmt.Errorf("plan catalog entry needs price_id and plan_id: %+v", m)
		}
		if existing, ok := c.prices[m.PriceID]; ok && existing != m.PlanID {
			return nil, fmt.Errorf("price %s mapped to both %s and %s", m.PriceID, existing, m.PlanID)
		}
		c.prices[m.PriceID] = m.PlanID
	}
	return c, nil
}

// DefaultPlanCatalog returns a catalog with no price mappings.
func DefaultPlanCatalog() *PlanCatalog {
	c, _ := NewPlanCatalog(PlanCatalogFile{})
	return c
}

// LoadPlanCatalog reads a YAML catalog. A missing file yields the default catalog.
func LoadPlanCatalog(path string, logger *zap.Logger) (*PlanCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Plan catalog not found, using defaults", zap.String("path", path))
			return DefaultPlanCatalog(), nil
		}
		return nil, fmt.Errorf("failed to read plan catalog: %w", err)
	}

	var file PlanCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}

	catalog, err := NewPlanCatalog(file)
	if err != nil {
		return nil, err
	}

	logger.Info("Plan catalog loaded",
		zap.String("path", path),
		zap.Int("prices", len(catalog.prices)),
		zap.String("default_subscription_plan", catalog.defaultSubscriptionPlan))
	return catalog, nil
}

// PlanForPrice returns the plan mapped to priceID, or the default subscription plan.
func (c *PlanCatalog) PlanForPrice(priceID string) string {
	if planID, ok := c.prices[priceID]; ok {
		return planID
	}
	return c.defaultSubscriptionPlan
}

func (c *PlanCatalog) DefaultCreditPlan() string {
	return c.defaultCreditPlan
}
